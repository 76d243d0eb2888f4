// Package metadata holds the resolved object graph of loaded assemblies.
//
// The graph arrives already decoded: assemblies contain types, types contain
// methods and fields, and every method body is a list of instructions with
// a mnemonic, an operand and a byte position. Nothing in this package parses
// container formats; see package image for the on-disk form.
//
// # Key Types
//
//   - [Assembly]: a named unit of code with types, references and an optional entry point
//   - [Type]: a class identified by namespace and name
//   - [Method]: a method and its body, if it has one
//   - [Field]: a field identified by its metadata table index
//   - [MethodRef]: a call-site descriptor resolved at run time
//   - [Body]: decoded instructions with an offset lookup
//   - [Domain]: the ordered set of loaded assemblies
//
// Types, methods and fields are immutable after construction. Constructors
// copy their input slices and set the owner links of their children:
//
//	main := metadata.NewMethod(metadata.MethodParams{
//		Name:   "Main",
//		Static: true,
//		RVA:    0x2050,
//		Body:   metadata.NewBody(instructions),
//	})
//	program := metadata.NewType(metadata.TypeParams{
//		Namespace: "Demo",
//		Name:      "Program",
//		Methods:   []*metadata.Method{main},
//	})
//	asm := metadata.NewAssembly(metadata.AssemblyParams{
//		Name:       "Demo",
//		Types:      []*metadata.Type{program},
//		EntryPoint: main,
//	})
package metadata
