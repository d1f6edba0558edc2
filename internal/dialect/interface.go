package dialect

// Vendor identifies a database vendor family.
type Vendor int

const (
	VendorUnknown Vendor = iota
	VendorPostgres
	VendorMySQL
	VendorSQLite
	VendorMSSQL
	VendorOracle
)

func (v Vendor) String() string {
	switch v {
	case VendorPostgres:
		return "postgres"
	case VendorMySQL:
		return "mysql"
	case VendorSQLite:
		return "sqlite"
	case VendorMSSQL:
		return "mssql"
	case VendorOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// DropStrategy is how a dialect keeps foreign keys from blocking a drop.
type DropStrategy int

const (
	// StrategyCascade drops with CASCADE; order does not matter.
	StrategyCascade DropStrategy = iota
	// StrategyDisableChecks turns FK enforcement off for the session around the drops.
	StrategyDisableChecks
	// StrategyDependencyOrder drops leaf tables first.
	StrategyDependencyOrder
)

func (s DropStrategy) String() string {
	switch s {
	case StrategyCascade:
		return "cascade"
	case StrategyDisableChecks:
		return "disable-checks"
	case StrategyDependencyOrder:
		return "dependency-order"
	default:
		return "unknown"
	}
}

// Query is a catalog query with its bind arguments.
type Query struct {
	SQL  string
	Args []any
}

// Statement is a DDL statement and the objects it acts on.
type Statement struct {
	SQL     string
	Objects []Object
}

// Dialect abstracts vendor-specific introspection and destructive DDL.
// Implementations are stateless and safe for concurrent use.
//
// Catalog queries return two columns, (schema, name), except
// ForeignKeysQuery which returns (child schema, child table, parent schema,
// parent table). An empty schema argument means the vendor's current
// schema (MySQL database, Oracle user).
type Dialect interface {
	Vendor() Vendor

	// Metadata Queries (Schema Introspection)
	SupportsSchemas() bool
	DefaultSchemas() []string
	TablesQuery(schema string) Query
	ViewsQuery(schema string) Query
	ForeignKeysQuery(schema string) Query
	VersionQuery() string

	// Destructive operations
	DropStrategy() DropStrategy
	SupportsCascade() bool
	DisableForeignKeys() []string
	EnableForeignKeys() []string
	DropTables(objs []Object) []Statement
	DropViews(objs []Object) []Statement
	TruncateTable(table Object, cascade bool) ([]Statement, error)

	// Helpers
	QuoteIdent(name string) string
	QualifiedName(o Object) string
	// NormalizeIdent maps a name typed by a user to its catalog form.
	NormalizeIdent(name string) string
}

// TypeDropper is implemented by dialects with user-defined types that
// outlive the tables using them.
type TypeDropper interface {
	TypesQuery(schema string) Query
	DropTypes(objs []Object) []Statement
}
