package pysrc

// File is the typed view of one parsed Python source file. All collections
// are in source order. Functions and Classes include nested definitions;
// Class.Methods holds only the direct children of that class body.
type File struct {
	Path   string
	Source []byte

	Imports     []Import
	Calls       []Call
	Functions   []Function
	Classes     []Class
	Assignments []Assignment
	AssertCount int
}

// Import is one import statement.
type Import struct {
	// From is true for "from M import ..." statements.
	From bool
	// Module is the dotted module of a from-import, empty for plain imports.
	Module string
	// Names are the imported names with their optional as-bindings.
	Names []ImportedName
	// TopLevel is true when the statement is a direct child of the module.
	TopLevel bool
}

// ImportedName is one name within an import statement.
type ImportedName struct {
	// Name is the dotted name as written ("*" for wildcard imports).
	Name string
	// Alias is the as-binding, empty when absent.
	Alias string
}

// Binding returns the local name the import introduces.
func (n ImportedName) Binding() string {
	if n.Alias != "" {
		return n.Alias
	}

	return n.Name
}

// Call is one call expression.
type Call struct {
	// Name is the final callee identifier: the bare function name, or the
	// attribute name for dotted calls.
	Name string
	// Receiver is the immediate receiver when it is a simple identifier
	// ("time" for time.sleep()), empty for bare calls and deeper chains.
	Receiver string
	// Dotted is true when the callee is an attribute access.
	Dotted bool
	// Keywords are the keyword argument names as written.
	Keywords []string
}

// Function is one function or coroutine definition.
type Function struct {
	Name string
	// Params are all parameter names, splat parameters included.
	Params []string
	// ConstantReturn is true when every direct return statement carries a
	// literal constant, nested definitions and pass are skipped, and no
	// other direct statement kind appears in the body.
	ConstantReturn bool
	// BodyOnlyPass is true when the body holds nothing but pass statements.
	BodyOnlyPass bool
}

// Class is one class definition.
type Class struct {
	Name string
	// Methods are the function definitions directly inside the class body.
	Methods []Function
}

// Assignment is one assignment with a simple identifier target.
type Assignment struct {
	Target string
	// ConstantValue is true when the assigned value is a literal constant.
	ConstantValue bool
}
