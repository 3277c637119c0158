package session

import "fmt"

// Route names a view. Entity routes carry the id in the path.
type Route string

const (
	RouteHome  Route = "/"
	RouteLogin Route = "/login"
)

func ProjectRoute(id int) Route { return Route(fmt.Sprintf("/projects/%d", id)) }
func ProjectEditRoute(id int) Route { return Route(fmt.Sprintf("/projects/%d/edit", id)) }
func DefectRoute(id int) Route { return Route(fmt.Sprintf("/defects/%d", id)) }
func DefectEditRoute(id int) Route { return Route(fmt.Sprintf("/defects/%d/edit", id)) }
