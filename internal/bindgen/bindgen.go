// Package bindgen generates Go bindings for a library's public headers
// by driving the c-for-go tool with a generated manifest.
package bindgen

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/astrokit/starsys/internal/library"
)

// Generator invokes c-for-go once per library.
type Generator struct {
	Tool   string // generator executable, "c-for-go" if empty
	OutDir string // bindings and manifests are written under here

	Stdout io.Writer
}

// New returns a Generator writing bindings under outDir.
func New(outDir string) *Generator {
	return &Generator{Tool: "c-for-go", OutDir: outDir, Stdout: os.Stdout}
}

// manifest mirrors the c-for-go YAML manifest layout.
type manifest struct {
	Generator  generatorConfig  `yaml:"GENERATOR"`
	Parser     parserConfig     `yaml:"PARSER"`
	Translator translatorConfig `yaml:"TRANSLATOR"`
}

type generatorConfig struct {
	PackageName string   `yaml:"PackageName"`
	Includes    []string `yaml:"Includes"`
}

type parserConfig struct {
	IncludePaths []string `yaml:"IncludePaths"`
	SourcesPaths []string `yaml:"SourcesPaths"`
}

type translatorConfig struct {
	ConstRules map[string]string `yaml:"ConstRules,omitempty"`
	Rules      map[string][]rule `yaml:"Rules"`
}

type rule struct {
	Action string `yaml:"action"`
	From   string `yaml:"from,omitempty"`
}

// Generate emits the manifest for spec against includeDir and runs the
// generator. upstreamIncludes are the include directories of libraries
// spec's headers depend on. Every binding header must exist under
// includeDir before the tool is invoked.
func (g *Generator) Generate(spec *library.Spec, includeDir string, upstreamIncludes []string) error {
	for _, h := range spec.BindHeaders {
		path := filepath.Join(includeDir, filepath.FromSlash(h))
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("binding header %s not found under %s", h, includeDir)
		}
	}

	path, err := g.writeManifest(spec, includeDir, upstreamIncludes)
	if err != nil {
		return err
	}

	tool := g.Tool
	if tool == "" {
		tool = "c-for-go"
	}
	cmd := exec.Command(tool, "-out", g.OutDir, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w\n%s", tool, spec.Name, err, output)
	}
	if g.Stdout != nil {
		g.Stdout.Write(output)
	}
	return nil
}

// writeManifest renders the c-for-go manifest for spec and returns its
// path. Exclusions become ignore rules ahead of the catch-all accept.
func (g *Generator) writeManifest(spec *library.Spec, includeDir string, upstreamIncludes []string) (string, error) {
	includes := append([]string{includeDir}, upstreamIncludes...)

	rules := make([]rule, 0, len(spec.BindExclude)+1)
	for _, name := range spec.BindExclude {
		rules = append(rules, rule{Action: "ignore", From: "^" + name + "$"})
	}
	rules = append(rules, rule{Action: "accept", From: "."})

	m := manifest{
		Generator: generatorConfig{
			PackageName: spec.Name,
			Includes:    spec.BindHeaders,
		},
		Parser: parserConfig{
			IncludePaths: includes,
			SourcesPaths: spec.BindHeaders,
		},
		Translator: translatorConfig{
			ConstRules: map[string]string{"defines": "expand"},
			Rules:      map[string][]rule{"global": rules},
		},
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(g.OutDir, spec.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, spec.Name+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
