package main

import (
	"errors"
	"fmt"

	"github.com/cao-lang/cao-lang-go/value"
	"github.com/cao-lang/cao-lang-go/vm"
)

// registerDemoNatives returns the VMOptions wiring up this CLI's sample
// host callback surface: just enough to make CallNative cards in a demo
// script do something observable, the way a real embedder would register
// its own domain-specific callbacks (spec.md section 3's CallNative /
// NativeNotFound contract).
func registerDemoNatives() []vm.VMOption {
	return []vm.VMOption{
		vm.WithNative("print", nativePrint, vm.Variadic),
		vm.WithNative("assert", nativeAssert, 1),
	}
}

// nativePrint writes its arguments (packed into the single Table Variadic
// hands it) space-separated to stdout, and returns Nil.
func nativePrint(m *vm.VM, args vm.Args) (value.Value, error) {
	if args.Len() != 1 {
		return value.Value{}, errors.New("print: expected a single packed Table argument")
	}
	tbl := args.Get(0)
	if tbl.Kind() != value.KindTable {
		return value.Value{}, errors.New("print: expected a Table argument")
	}
	t := m.Arena().Table(tbl.Ref())
	for i, v := range t.Values() {
		if i > 0 {
			fmt.Print(" ")
		}
		if v.Kind() == value.KindString {
			fmt.Print(m.Arena().String(v.Ref()))
		} else {
			fmt.Print(v.String())
		}
	}
	fmt.Println()
	return value.Nil(), nil
}

// nativeAssert fails the call (surfaced to the script as a NativeError)
// when its one argument isn't truthy.
func nativeAssert(m *vm.VM, args vm.Args) (value.Value, error) {
	ok, err := value.Truthy(args.Get(0))
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.Value{}, errors.New("assert: condition was false")
	}
	return value.Nil(), nil
}
