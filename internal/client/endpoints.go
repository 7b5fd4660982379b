package client

import "fmt"

const apiBase = "/api"

const (
	pathLogin       = apiBase + "/login"
	pathLogout      = apiBase + "/logout"
	pathCurrentUser = apiBase + "/user"
)

// Resource names the four reviewable collections exposed by the API
type Resource string

const (
	Applications     Resource = "membership-applications"
	Members          Resource = "members"
	Payments         Resource = "payments"
	SelfDeclarations Resource = "self-declarations"
)

func (r Resource) listPath() string {
	return fmt.Sprintf("%s/%s", apiBase, r)
}

func (r Resource) itemPath(id int64) string {
	return fmt.Sprintf("%s/%s/%d", apiBase, r, id)
}

func (r Resource) actionPath(id int64, action string) string {
	return fmt.Sprintf("%s/%s/%d/%s", apiBase, r, id, action)
}
