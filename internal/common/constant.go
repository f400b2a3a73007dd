package common

// Collection names shared by the wire protocol, the server store and the
// client cache namespaces.
const (
	CollectionAudits    = "audits"
	CollectionTemplates = "templates"
	CollectionActions   = "actions"
)

// Collections lists every synchronised collection in push order.
var Collections = []string{CollectionTemplates, CollectionAudits, CollectionActions}

// DefaultTemplatePrefix marks ids reserved for built-in templates.
const DefaultTemplatePrefix = "default-"

// AuthorizationHeader carries "Bearer <token>" on every data request.
const AuthorizationHeader = "Authorization"

// IsCollection reports whether name is one of the synchronised collections.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
