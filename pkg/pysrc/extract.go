package pysrc

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Grammar node type names.
const (
	nodeModule           = "module"
	nodeImport           = "import_statement"
	nodeImportFrom       = "import_from_statement"
	nodeAliasedImport    = "aliased_import"
	nodeDottedName       = "dotted_name"
	nodeWildcardImport   = "wildcard_import"
	nodeFunctionDef      = "function_definition"
	nodeClassDef         = "class_definition"
	nodeDecoratedDef     = "decorated_definition"
	nodeCall             = "call"
	nodeAttribute        = "attribute"
	nodeIdentifier       = "identifier"
	nodeArgumentList     = "argument_list"
	nodeKeywordArgument  = "keyword_argument"
	nodeAssignment       = "assignment"
	nodeReturn           = "return_statement"
	nodePass             = "pass_statement"
	nodeAssert           = "assert_statement"
	nodeComment          = "comment"
	nodeDefaultParam     = "default_parameter"
	nodeTypedParam       = "typed_parameter"
	nodeTypedDefault     = "typed_default_parameter"
	nodeListSplat        = "list_splat_pattern"
	nodeDictSplat        = "dictionary_splat_pattern"
	fieldName            = "name"
	fieldAlias           = "alias"
	fieldModuleName      = "module_name"
	fieldFunction        = "function"
	fieldArguments       = "arguments"
	fieldObject          = "object"
	fieldAttributeMember = "attribute"
	fieldParameters      = "parameters"
	fieldBody            = "body"
	fieldLeft            = "left"
	fieldRight           = "right"
)

// constantTypes are the grammar types the analyzers treat as literal
// constants, mirroring what the language's own syntax module calls Constant.
var constantTypes = map[string]bool{
	"string":              true,
	"concatenated_string": true,
	"integer":             true,
	"float":               true,
	"true":                true,
	"false":               true,
	"none":                true,
}

// extract walks the tree once and fills the typed collections.
func (f *File) extract(root sitter.Node) {
	f.walk(root, true)
}

func (f *File) walk(n sitter.Node, topLevel bool) {
	switch n.Type() {
	case nodeImport:
		f.Imports = append(f.Imports, f.plainImport(n, topLevel))
	case nodeImportFrom:
		f.Imports = append(f.Imports, f.fromImport(n, topLevel))
	case nodeCall:
		f.Calls = append(f.Calls, f.call(n))
	case nodeFunctionDef:
		f.Functions = append(f.Functions, f.function(n))
	case nodeClassDef:
		f.Classes = append(f.Classes, f.class(n))
	case nodeAssignment:
		if a, ok := f.assignment(n); ok {
			f.Assignments = append(f.Assignments, a)
		}
	case nodeAssert:
		f.AssertCount++
	}

	childTopLevel := topLevel && n.Type() == nodeModule

	for i := range n.NamedChildCount() {
		f.walk(n.NamedChild(i), childTopLevel)
	}
}

// text returns the source text of a node.
func (f *File) text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(f.Source)) {
		return ""
	}

	return string(f.Source[start:end])
}

// plainImport extracts "import a.b, c as d".
func (f *File) plainImport(n sitter.Node, topLevel bool) Import {
	imp := Import{TopLevel: topLevel}

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)

		switch child.Type() {
		case nodeDottedName:
			imp.Names = append(imp.Names, ImportedName{Name: f.text(child)})
		case nodeAliasedImport:
			imp.Names = append(imp.Names, f.aliasedImport(child))
		}
	}

	return imp
}

// fromImport extracts "from m import a, b as c".
func (f *File) fromImport(n sitter.Node, topLevel bool) Import {
	imp := Import{From: true, TopLevel: topLevel}

	module := n.ChildByFieldName(fieldModuleName)
	if !module.IsNull() {
		imp.Module = f.text(module)
	}

	moduleStart := module.StartByte()

	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if !module.IsNull() && child.StartByte() == moduleStart {
			continue
		}

		switch child.Type() {
		case nodeDottedName:
			imp.Names = append(imp.Names, ImportedName{Name: f.text(child)})
		case nodeAliasedImport:
			imp.Names = append(imp.Names, f.aliasedImport(child))
		case nodeWildcardImport:
			imp.Names = append(imp.Names, ImportedName{Name: "*"})
		}
	}

	return imp
}

func (f *File) aliasedImport(n sitter.Node) ImportedName {
	name := ImportedName{}

	if nameNode := n.ChildByFieldName(fieldName); !nameNode.IsNull() {
		name.Name = f.text(nameNode)
	}

	if aliasNode := n.ChildByFieldName(fieldAlias); !aliasNode.IsNull() {
		name.Alias = f.text(aliasNode)
	}

	return name
}

// call extracts one call expression.
func (f *File) call(n sitter.Node) Call {
	call := Call{}

	callee := n.ChildByFieldName(fieldFunction)
	if !callee.IsNull() {
		switch callee.Type() {
		case nodeIdentifier:
			call.Name = f.text(callee)
		case nodeAttribute:
			call.Dotted = true

			if attr := callee.ChildByFieldName(fieldAttributeMember); !attr.IsNull() {
				call.Name = f.text(attr)
			}

			if obj := callee.ChildByFieldName(fieldObject); !obj.IsNull() && obj.Type() == nodeIdentifier {
				call.Receiver = f.text(obj)
			}
		}
	}

	args := n.ChildByFieldName(fieldArguments)
	if !args.IsNull() {
		for i := range args.NamedChildCount() {
			arg := args.NamedChild(i)
			if arg.Type() != nodeKeywordArgument {
				continue
			}

			if kwName := arg.ChildByFieldName(fieldName); !kwName.IsNull() {
				call.Keywords = append(call.Keywords, f.text(kwName))
			}
		}
	}

	return call
}

// function extracts one function definition together with the body shape
// facts the analyzers need.
func (f *File) function(n sitter.Node) Function {
	fn := Function{}

	if nameNode := n.ChildByFieldName(fieldName); !nameNode.IsNull() {
		fn.Name = f.text(nameNode)
	}

	if params := n.ChildByFieldName(fieldParameters); !params.IsNull() {
		fn.Params = f.parameters(params)
	}

	body := n.ChildByFieldName(fieldBody)
	fn.ConstantReturn = f.constantReturnBody(body)
	fn.BodyOnlyPass = f.onlyPassBody(body)

	return fn
}

// parameters collects every parameter name, splat parameters included.
func (f *File) parameters(params sitter.Node) []string {
	var names []string

	for i := range params.NamedChildCount() {
		p := params.NamedChild(i)

		switch p.Type() {
		case nodeIdentifier:
			names = append(names, f.text(p))
		case nodeDefaultParam, nodeTypedDefault:
			if nameNode := p.ChildByFieldName(fieldName); !nameNode.IsNull() && nameNode.Type() == nodeIdentifier {
				names = append(names, f.text(nameNode))
			}
		case nodeTypedParam, nodeListSplat, nodeDictSplat:
			if id := firstChildOfType(p, nodeIdentifier); !id.IsNull() {
				names = append(names, f.text(id))
			}
		}
	}

	return names
}

// constantReturnBody checks the constant-return contract over the body's
// direct statements: returns must carry a literal constant, nested
// definitions and pass are skipped without being walked, anything else
// disqualifies. A bare return disqualifies. Zero returns passes.
func (f *File) constantReturnBody(body sitter.Node) bool {
	if body.IsNull() {
		return true
	}

	for i := range body.NamedChildCount() {
		stmt := body.NamedChild(i)

		switch stmt.Type() {
		case nodeReturn:
			value := firstNamedNonComment(stmt)
			if value.IsNull() || !constantTypes[value.Type()] {
				return false
			}
		case nodeFunctionDef, nodeClassDef, nodeDecoratedDef, nodePass, nodeComment:
			continue
		default:
			return false
		}
	}

	return true
}

// onlyPassBody reports whether the body holds nothing but pass statements.
func (f *File) onlyPassBody(body sitter.Node) bool {
	if body.IsNull() {
		return true
	}

	for i := range body.NamedChildCount() {
		stmt := body.NamedChild(i)
		if stmt.Type() == nodeComment {
			continue
		}

		if stmt.Type() != nodePass {
			return false
		}
	}

	return true
}

// class extracts one class definition with its direct methods.
func (f *File) class(n sitter.Node) Class {
	cls := Class{}

	if nameNode := n.ChildByFieldName(fieldName); !nameNode.IsNull() {
		cls.Name = f.text(nameNode)
	}

	body := n.ChildByFieldName(fieldBody)
	if body.IsNull() {
		return cls
	}

	for i := range body.NamedChildCount() {
		stmt := body.NamedChild(i)

		if stmt.Type() == nodeDecoratedDef {
			if def := firstChildOfType(stmt, nodeFunctionDef); !def.IsNull() {
				stmt = def
			}
		}

		if stmt.Type() == nodeFunctionDef {
			cls.Methods = append(cls.Methods, f.function(stmt))
		}
	}

	return cls
}

// assignment extracts an assignment with a simple identifier target. Chained
// assignments nest on the right side, so the effective value is resolved
// through nested assignment nodes.
func (f *File) assignment(n sitter.Node) (Assignment, bool) {
	left := n.ChildByFieldName(fieldLeft)
	if left.IsNull() || left.Type() != nodeIdentifier {
		return Assignment{}, false
	}

	right := n.ChildByFieldName(fieldRight)
	for !right.IsNull() && right.Type() == nodeAssignment {
		right = right.ChildByFieldName(fieldRight)
	}

	if right.IsNull() {
		// Bare annotation without a value (x: int).
		return Assignment{}, false
	}

	return Assignment{
		Target:        f.text(left),
		ConstantValue: constantTypes[right.Type()],
	}, true
}

// firstChildOfType returns the first named child of the given type, or a
// null node.
func firstChildOfType(n sitter.Node, typ string) sitter.Node {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() == typ {
			return child
		}
	}

	return sitter.Node{}
}

// firstNamedNonComment returns the first named child that is not a comment,
// or a null node.
func firstNamedNonComment(n sitter.Node) sitter.Node {
	for i := range n.NamedChildCount() {
		child := n.NamedChild(i)
		if child.Type() != nodeComment {
			return child
		}
	}

	return sitter.Node{}
}
