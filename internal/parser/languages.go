package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// DefaultParsers builds the full parser set, one per supported language.
func DefaultParsers() ([]LanguageParser, error) {
	specs := []languageSpec{
		goSpec(),
		pythonSpec(),
		javascriptSpec(),
		typescriptSpec(),
		javaSpec(),
		rustSpec(),
		csharpSpec(),
		cppSpec(),
		phpSpec(),
		zigSpec(),
	}

	parsers := make([]LanguageParser, 0, len(specs))
	for _, spec := range specs {
		p, err := newTreeSitterParser(spec)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}
	return parsers, nil
}

func goExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func pythonExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func goSpec() languageSpec {
	return languageSpec{
		name:       "go",
		extensions: []string{".go"},
		language:   tree_sitter.NewLanguage(tree_sitter_go.Language()),
		exported:   goExported,
		query: `
        (function_declaration name: (identifier) @function.name) @function
        (method_declaration name: (field_identifier) @method.name) @method
        (type_declaration (type_spec name: (type_identifier) @type.name) @type)
        (import_spec path: (interpreted_string_literal) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (selector_expression field: (field_identifier) @call.name)) @call
    `,
	}
}

func pythonSpec() languageSpec {
	return languageSpec{
		name:       "python",
		extensions: []string{".py", ".pyi"},
		language:   tree_sitter.NewLanguage(tree_sitter_python.Language()),
		exported:   pythonExported,
		query: `
        (class_definition
            name: (identifier) @class.name
            superclasses: (argument_list (identifier) @inherit.name)) @class
        (class_definition name: (identifier) @class.name) @class
        (function_definition name: (identifier) @function.name) @function
        (import_statement name: (dotted_name) @import.path) @import
        (import_from_statement module_name: (dotted_name) @import.path) @import
        (call function: (identifier) @call.name) @call
        (call function: (attribute attribute: (identifier) @call.name)) @call
    `,
	}
}

func javascriptSpec() languageSpec {
	return languageSpec{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs"},
		language:   tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		query: `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression)]) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration
            name: (identifier) @class.name
            (class_heritage (identifier) @inherit.name)) @class
        (class_declaration name: (identifier) @class.name) @class
        (import_statement source: (string) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (member_expression property: (property_identifier) @call.name)) @call
    `,
	}
}

func typescriptSpec() languageSpec {
	return languageSpec{
		name:       "typescript",
		extensions: []string{".ts", ".tsx"},
		language:   tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		query: `
        (function_declaration name: (identifier) @function.name) @function
        (generator_function_declaration name: (identifier) @function.name) @function
        (variable_declarator
            name: (identifier) @function.name
            value: [(arrow_function) (function_expression)]) @function
        (method_definition name: (property_identifier) @method.name) @method
        (class_declaration
            name: (type_identifier) @class.name
            (class_heritage (extends_clause value: (identifier) @inherit.name))) @class
        (class_declaration name: (type_identifier) @class.name) @class
        (interface_declaration name: (type_identifier) @interface.name) @interface
        (type_alias_declaration name: (type_identifier) @type.name) @type
        (enum_declaration name: (identifier) @enum.name) @enum
        (import_statement source: (string) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (member_expression property: (property_identifier) @call.name)) @call
    `,
	}
}

func javaSpec() languageSpec {
	return languageSpec{
		name:       "java",
		extensions: []string{".java"},
		language:   tree_sitter.NewLanguage(tree_sitter_java.Language()),
		query: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @method.name) @method
        (class_declaration
            name: (identifier) @class.name
            superclass: (superclass (type_identifier) @inherit.name)) @class
        (class_declaration name: (identifier) @class.name) @class
        (record_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (enum_declaration name: (identifier) @enum.name) @enum
        (import_declaration (scoped_identifier) @import.path) @import
        (method_invocation name: (identifier) @call.name) @call
        (object_creation_expression type: (type_identifier) @call.name) @call
    `,
	}
}

func rustSpec() languageSpec {
	return languageSpec{
		name:       "rust",
		extensions: []string{".rs"},
		language:   tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		query: `
        (function_item name: (identifier) @function.name) @function
        (struct_item name: (type_identifier) @struct.name) @struct
        (enum_item name: (type_identifier) @enum.name) @enum
        (trait_item name: (type_identifier) @interface.name) @interface
        (type_item name: (type_identifier) @type.name) @type
        (use_declaration argument: (_) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (field_expression field: (field_identifier) @call.name)) @call
        (call_expression function: (scoped_identifier name: (identifier) @call.name)) @call
    `,
	}
}

func csharpSpec() languageSpec {
	return languageSpec{
		name:       "csharp",
		extensions: []string{".cs"},
		language:   tree_sitter.NewLanguage(tree_sitter_csharp.Language()),
		query: `
        (method_declaration name: (identifier) @method.name) @method
        (constructor_declaration name: (identifier) @method.name) @method
        (class_declaration
            name: (identifier) @class.name
            (base_list (identifier) @inherit.name)) @class
        (class_declaration name: (identifier) @class.name) @class
        (interface_declaration name: (identifier) @interface.name) @interface
        (struct_declaration name: (identifier) @struct.name) @struct
        (record_declaration name: (identifier) @class.name) @class
        (enum_declaration name: (identifier) @enum.name) @enum
        (using_directive (qualified_name) @import.path) @import
        (using_directive (identifier) @import.path) @import
        (invocation_expression function: (identifier) @call.name) @call
        (invocation_expression function: (member_access_expression name: (identifier) @call.name)) @call
    `,
	}
}

func cppSpec() languageSpec {
	return languageSpec{
		name:       "cpp",
		extensions: []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp"},
		language:   tree_sitter.NewLanguage(tree_sitter_cpp.Language()),
		query: `
        (function_definition
            declarator: (function_declarator declarator: (identifier) @function.name)) @function
        (function_definition
            declarator: (function_declarator declarator: (field_identifier) @method.name)) @method
        (function_definition
            declarator: (function_declarator
                declarator: (qualified_identifier name: (identifier) @method.name))) @method
        (class_specifier name: (type_identifier) @class.name) @class
        (struct_specifier name: (type_identifier) @struct.name) @struct
        (enum_specifier name: (type_identifier) @enum.name) @enum
        (preproc_include path: (string_literal) @import.path) @import
        (preproc_include path: (system_lib_string) @import.path) @import
        (call_expression function: (identifier) @call.name) @call
        (call_expression function: (field_expression field: (field_identifier) @call.name)) @call
    `,
	}
}

func phpSpec() languageSpec {
	return languageSpec{
		name:       "php",
		extensions: []string{".php", ".phtml"},
		language:   tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()),
		query: `
        (function_definition name: (name) @function.name) @function
        (method_declaration name: (name) @method.name) @method
        (class_declaration
            name: (name) @class.name
            (base_clause (name) @inherit.name)) @class
        (class_declaration name: (name) @class.name) @class
        (interface_declaration name: (name) @interface.name) @interface
        (trait_declaration name: (name) @interface.name) @interface
        (enum_declaration name: (name) @enum.name) @enum
        (namespace_use_declaration (namespace_use_clause (qualified_name) @import.path)) @import
        (function_call_expression function: (name) @call.name) @call
        (member_call_expression name: (name) @call.name) @call
        (scoped_call_expression name: (name) @call.name) @call
    `,
	}
}

func zigSpec() languageSpec {
	return languageSpec{
		name:       "zig",
		extensions: []string{".zig"},
		language:   tree_sitter.NewLanguage(tree_sitter_zig.Language()),
		query: `
        (function_declaration (identifier) @function.name) @function
        (variable_declaration
            (identifier) @struct.name
            (struct_declaration) @struct)
        (variable_declaration
            (identifier) @struct.name
            (union_declaration) @struct)
    `,
	}
}
