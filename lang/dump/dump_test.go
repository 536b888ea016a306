package dump_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/corvid/internal/filetest"
	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/dump"
	"github.com/mna/corvid/lang/lexer"
	"github.com/mna/corvid/lang/parser"
)

var updateTests = flag.Bool("test.update-dump-tests", false, "update dump golden files")

func TestFuncDef(t *testing.T) {
	const dir = "testdata"
	for _, fi := range filetest.SourceFiles(t, dir, ".cor") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			require.NoError(t, err)

			lex := lexer.New(string(src), nil)
			chunk, err := parser.New(lex).Parse()
			require.NoError(t, err)

			c := compiler.New(nil)
			res, err := c.Compile(chunk)
			require.NoError(t, err)

			var out string
			for _, name := range res.Order {
				out += dump.FuncDef(res.Funcs[name])
			}
			filetest.DiffOutput(t, fi, out, dir, updateTests)
		})
	}
}
