package rbac

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Permission names an action on a resource, written "resource:action".
type Permission string

const (
	ViewOwnStructure Permission = "structure:view-own"
	ViewAnyStructure Permission = "structure:view-any"
	EditStructure    Permission = "structure:edit"
	ViewOwnAnswers   Permission = "answers:view-own"
	ViewAnyAnswers   Permission = "answers:view-any"
	SaveOwnAnswers   Permission = "answers:save-own"
)

// DefaultPolicy lets users act on their own interview only; admins may do
// anything.
var DefaultPolicy = Policy{
	RoleUser:  {ViewOwnStructure, ViewOwnAnswers, SaveOwnAnswers},
	RoleAdmin: {"*"},
}
