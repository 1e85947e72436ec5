// Package build provides build information set at compile time via ldflags.
package build

var (
	// Version is the build version of the userstore binary.
	Version = "dev"

	// Commit is the git commit the binary was built from.
	Commit = "none"

	// Date is the date the binary was built.
	Date = "unknown"

	// ProjectName is the display name used in logs and the version command.
	ProjectName = "userstore"
)

// MinimumSupportedDatastoreSchemaRevision is the minimum schema revision the
// datastore code in this build depends on. Revision 2 adds the nullable
// users.password column.
const MinimumSupportedDatastoreSchemaRevision int64 = 2
