// Command pikldump decodes a pickle stream from stdin (or a named file)
// and prints a readable rendering of the decoded value to stdout.
//
// It accepts no class allow-list by default, so any stream using GLOBAL
// fails to decode; pass -allow module.Name (repeatable) to permit specific
// classes to resolve to plain attribute-mapping instances.
//
// Given -dump, it runs in the opposite direction: a tiny flag-driven
// constructor builds one value (-type picks the kind, -value/-item supply
// its contents) and its pickle encoding is written to stdout instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gopickle/pikl"
)

type allowList []string

func (a *allowList) String() string { return strings.Join(*a, ",") }
func (a *allowList) Set(v string) error {
	*a = append(*a, v)
	return nil
}

type itemList []string

func (l *itemList) String() string { return strings.Join(*l, ",") }
func (l *itemList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("pikldump: ")

	var allow allowList
	flag.Var(&allow, "allow", "module.Name pair to permit GLOBAL to resolve (repeatable)")

	dump := flag.Bool("dump", false, "build a value from -type/-value/-item and pickle it to stdout, instead of decoding")
	typ := flag.String("type", "str", "value kind for -dump: none|bool|int|float|str|bytes|tuple")
	value := flag.String("value", "", "scalar value for -dump (ignored for none/tuple)")
	var items itemList
	flag.Var(&items, "item", "tuple element for -dump -type=tuple (repeatable, each a string)")
	flag.Parse()

	if *dump {
		v, err := buildValue(*typ, *value, items)
		if err != nil {
			log.Fatalf("-dump: %s", err)
		}
		if err := pikl.Dump(os.Stdout, v); err != nil {
			log.Fatalf("encode: %s", err)
		}
		return
	}

	registry := pikl.NewClassRegistry()
	for _, spec := range allow {
		module, name, ok := strings.Cut(spec, ".")
		if !ok {
			log.Fatalf("-allow %q: want module.Name", spec)
		}
		registry.Allow(module, name)
	}

	var in *os.File
	args := flag.Args()
	switch len(args) {
	case 0:
		in = os.Stdin
	case 1:
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("open %s: %s", args[0], err)
		}
		defer f.Close()
		in = f
	default:
		log.Fatal("usage: pikldump [-allow module.Name ...] [file] | pikldump -dump -type T [-value V] [-item X ...]")
	}

	cfg := pikl.Config{Registry: registry}
	v, err := cfg.Load(in)
	if err != nil {
		log.Fatalf("decode: %s", err)
	}

	render(os.Stdout, v, 0)
	fmt.Fprintln(os.Stdout)
}

// buildValue is the flag-driven constructor backing -dump: it turns a
// -type name plus -value/-item flags into the native value domain
// ([pikl.Bytes], [pikl.Tuple], ...) that [pikl.Dump] already knows how to
// encode, so -dump exercises the same visit driver used by [pikl.Dumps].
func buildValue(typ, value string, items itemList) (any, error) {
	switch typ {
	case "none":
		return pikl.None{}, nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("-value %q: want a bool: %w", value, err)
		}
		return b, nil
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("-value %q: want an int: %w", value, err)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("-value %q: want a float: %w", value, err)
		}
		return f, nil
	case "str":
		return value, nil
	case "bytes":
		return pikl.Bytes(value), nil
	case "tuple":
		t := make(pikl.Tuple, len(items))
		for i, s := range items {
			t[i] = s
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown -type %q", typ)
	}
}

func render(w *os.File, v any, depth int) {
	switch x := v.(type) {
	case pikl.None:
		fmt.Fprint(w, "None")
	case bool, int64, float64:
		fmt.Fprintf(w, "%v", x)
	case string:
		fmt.Fprintf(w, "%q", x)
	case pikl.Bytes:
		fmt.Fprintf(w, "b%q", string(x))
	case pikl.Tuple:
		fmt.Fprint(w, "(")
		for i, e := range x {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			render(w, e, depth+1)
		}
		fmt.Fprint(w, ")")
	case *pikl.Dict:
		keys := x.Keys()
		fmt.Fprint(w, "{")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			val, _ := x.Get(k)
			render(w, k, depth+1)
			fmt.Fprint(w, ": ")
			render(w, val, depth+1)
		}
		fmt.Fprint(w, "}")
	case *pikl.Instance:
		fmt.Fprintf(w, "%s.%s(", x.Class.Module, x.Class.Name)
		keys := make([]string, 0, len(x.State))
		for k := range x.State {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%s=", k)
			render(w, x.State[k], depth+1)
		}
		fmt.Fprint(w, ")")
	default:
		fmt.Fprintf(w, "%v", x)
	}
}
