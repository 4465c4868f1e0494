package api

// Descriptor is the static document served at the root route.
type Descriptor struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Creator     Creator     `json:"creator"`
	Routes      []RouteInfo `json:"routes"`
}

// Creator names the author of the service.
type Creator struct {
	Name     string `json:"name"`
	GitHub   string `json:"github"`
	LinkedIn string `json:"linkedin"`
}

// RouteInfo documents one public route.
type RouteInfo struct {
	Route       string      `json:"route"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params,omitempty"`
	Example     string      `json:"example,omitempty"`
}

// ParamInfo documents one query parameter.
type ParamInfo struct {
	Param       string `json:"param"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     int    `json:"default"`
	Max         int    `json:"max,omitempty"`
}

var descriptor = Descriptor{
	Title:       "Express GithubAPI",
	Description: "RestAPI that makes calls to GitHubAPI_v3 to fetch relevant data",
	Date:        "31/03/2023",
	Creator: Creator{
		Name:     "Jordi Sevilla Marí",
		GitHub:   "github.com/JordiSM",
		LinkedIn: "https://www.linkedin.com/in/jordi-sevilla-mari-a7a076243/",
	},
	Routes: []RouteInfo{
		{
			Route:       "/orgs",
			Description: "Returns total of public organizations on Github and Lists all organizations, in the order that they were created on GitHub.",
			Params: []ParamInfo{
				{Param: "per_page", Type: "integer", Description: "Indicates the number of results per page", Default: 30, Max: 100},
				{Param: "page", Type: "integer", Description: "Page number of the results to fetch", Default: 1},
			},
		},
		{
			Route:       "/orgs/{name}",
			Description: "Returns the total amount of public Repositorys in an Organization and list all the public data",
			Example:     "/orgs/trifork",
		},
		{
			Route:       "/orgs/{name}/repos",
			Description: "List all public repositories of an Organization",
			Example:     "/orgs/trifork/repos",
		},
		{
			Route:       "/orgs/{name}/repos/biggest",
			Description: "Returns the biggest public repository (in bytes) of an Organization",
			Example:     "/orgs/trifork/repos/biggest",
		},
	},
}
