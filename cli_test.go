package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rekubricks/entities"
	"rekubricks/repository"
	"rekubricks/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChange(t *testing.T) {
	assert.Equal(t, services.Delta(2), parseChange("+2"))
	assert.Equal(t, services.Delta(-1), parseChange("-1"))
	assert.Equal(t, services.Absolute("7"), parseChange("7"))
	assert.Equal(t, services.Absolute("-x"), parseChange("-x"))
}

func TestTerminalPrompter_Confirm(t *testing.T) {
	for input, want := range map[string]bool{
		"s\n":   true,
		"Sí\n":  true,
		"yes\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		var out bytes.Buffer
		p := newTerminalPrompter(strings.NewReader(input), &out, false)
		assert.Equal(t, want, p.Confirm("¿Seguro?"), "input %q", input)
		assert.Contains(t, out.String(), "¿Seguro? [s/N]")
	}
}

func TestTerminalPrompter_AssumeYes(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPrompter(strings.NewReader(""), &out, true)
	assert.True(t, p.Confirm("¿Seguro?"))
	assert.Empty(t, out.String())

	p.Alert("aviso")
	assert.Equal(t, "aviso\n", out.String())
}

func TestPrintCart(t *testing.T) {
	repo, err := repository.NewCartRepository(repository.NewMemoryStore(), "cli", nil)
	require.NoError(t, err)
	cs, err := services.NewCartService(repo, newTerminalPrompter(strings.NewReader(""), &bytes.Buffer{}, true), nil)
	require.NoError(t, err)

	var out bytes.Buffer
	printCart(&out, cs)
	assert.Contains(t, out.String(), "Tu carrito está vacío")

	require.NoError(t, cs.Add(services.AddRequestFor(samplePiece())))
	require.NoError(t, cs.SetQuantity("3001-5", services.Absolute("3")))
	out.Reset()
	printCart(&out, cs)
	assert.Contains(t, out.String(), "Brick 2x4")
	assert.Contains(t, out.String(), "Subtotal: Q4.50 (3 piezas)")
}

func samplePiece() entities.Piece {
	return entities.Piece{Id: "3001-5", IdMolde: "3001", IdColor: "5", Name: "Brick 2x4", Color: "Red", Category: "Bricks", Price: 1.5}
}

func TestPrintHandoffs(t *testing.T) {
	var out bytes.Buffer
	printHandoffs(&out, nil)
	assert.Contains(t, out.String(), "No hay pedidos registrados.")

	out.Reset()
	printHandoffs(&out, []entities.Handoff{{
		Id: "h-1", CartSessionId: "s1", Date: time.Now(), Items: 3, Subtotal: 4.5,
	}})
	assert.Contains(t, out.String(), "h-1")
	assert.Contains(t, out.String(), "Q4.50")
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "rekubricks %v", args)
	return out.String()
}

func TestCLI_ImportListOrder(t *testing.T) {
	for _, k := range []string{"PORT", "CART_STORE", "REDIS_HOST", "REDIS_PORT", "DATABASE_DRIVER", "DATABASE_URL", "CATALOG_FILE", "WHATSAPP_PHONE", "DEBUG"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	seed := filepath.Join(dir, "pieces.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
- Piece_ID: 3001-5
  ID_MOLDE: 3001
  ID_COLOR: 5
  Piece_Name: Brick 2x4
  Color: Red
  Category: Bricks
  Price: 1.5
  Image_URL: https://img.test/3001-5.png
`), 0o644))
	conf := filepath.Join(dir, "rekubricks.yaml")
	require.NoError(t, os.WriteFile(conf, []byte(`
cart:
  store: sqlite
  sqlite_path: `+filepath.Join(dir, "carts.db")+`
catalog:
  driver: sqlite3
  dsn: `+filepath.Join(dir, "catalog.db")+`
order:
  whatsapp_phone: "50252054584"
  log_handoffs: true
`), 0o644))

	assert.Contains(t, runCLI(t, "-c", conf, "catalog", "import", seed), "Se cargaron 1 piezas.")
	assert.Contains(t, runCLI(t, "-c", conf, "cart", "add", "3001-5", "-s", "s1"), "Brick 2x4")
	listed := runCLI(t, "-c", conf, "catalog", "list", "-q", "RED")
	assert.Contains(t, listed, "3001-5")
	assert.Contains(t, listed, "1 de 1 piezas")

	link := runCLI(t, "-c", conf, "cart", "order", "-s", "s1")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/50252054584?text="))

	listed = runCLI(t, "-c", conf, "handoffs", "list", "--since", "1h")
	assert.Contains(t, listed, "s1")
	assert.Contains(t, listed, "Q1.50")
}
