package manifest

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modkit/internal/ctxlog"
)

// Filename is the manifest file that marks a directory as a module.
const Filename = "module.hcl"

// rootSchema is the top-level structure of a module.hcl file.
type rootSchema struct {
	Module *moduleBlock `hcl:"module,block"`
	Types  []*typeBlock `hcl:"type,block"`
}

// moduleBlock is the optional 'module' block.
type moduleBlock struct {
	Version      string   `hcl:"version,optional"`
	RequiresHost string   `hcl:"requires_host,optional"`
	DependsOn    []string `hcl:"depends_on,optional"`
	Sources      []string `hcl:"sources,optional"`
}

// typeBlock is a single 'type' block; its body is decoded separately so a
// malformed field does not abort the surrounding blocks.
type typeBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// typeBodySchema defines the body of a 'type' block.
var typeBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "field", LabelNames: []string{"name"}},
	},
}

// fieldBodySchema defines the body of a 'field' block.
var fieldBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "factory", Required: true},
		{Name: "type"},
		{Name: "default"},
		{Name: "optional"},
	},
}

// Load reads and validates a module.hcl file.
func Load(ctx context.Context, path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(ctx, data, path)
}

// Parse decodes manifest bytes. The filename is used only for diagnostics.
func Parse(ctx context.Context, data []byte, filename string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	schema := &rootSchema{}
	if diags := gohcl.DecodeBody(file.Body, nil, schema); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}

	m := &Manifest{}
	if schema.Module != nil {
		m.Version = schema.Module.Version
		m.RequiresHost = schema.Module.RequiresHost
		m.DependsOn = schema.Module.DependsOn
		m.Sources = schema.Module.Sources
	}

	for _, tb := range schema.Types {
		ct, diags := parseType(tb)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode type %q in %s: %w", tb.Name, filename, diags)
		}
		m.Types = append(m.Types, ct)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", filename, err)
	}

	logger.Debug("Parsed module manifest.", "file", filename, "types", len(m.Types))
	return m, nil
}

// parseType decodes a single 'type' block body into a CompositeType.
func parseType(tb *typeBlock) (*CompositeType, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	content, diags := tb.Body.Content(typeBodySchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	ct := &CompositeType{Name: tb.Name}

	if attr, exists := content.Attributes["description"]; exists {
		exprDiags := gohcl.DecodeExpression(attr.Expr, nil, &ct.Description)
		allDiags = append(allDiags, exprDiags...)
	}

	for _, block := range content.Blocks {
		field, fieldDiags := parseField(block)
		allDiags = append(allDiags, fieldDiags...)
		if fieldDiags.HasErrors() {
			continue
		}
		ct.Fields = append(ct.Fields, field)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return ct, nil
}

// parseField decodes a single 'field' block body.
func parseField(block *hcl.Block) (*Field, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	content, diags := block.Body.Content(fieldBodySchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	field := &Field{Name: block.Labels[0]}

	if attr, exists := content.Attributes["factory"]; exists {
		exprDiags := gohcl.DecodeExpression(attr.Expr, nil, &field.Factory)
		allDiags = append(allDiags, exprDiags...)
	}
	if attr, exists := content.Attributes["type"]; exists {
		exprDiags := gohcl.DecodeExpression(attr.Expr, nil, &field.TypeRef)
		allDiags = append(allDiags, exprDiags...)
	}
	if attr, exists := content.Attributes["optional"]; exists {
		exprDiags := gohcl.DecodeExpression(attr.Expr, nil, &field.Optional)
		allDiags = append(allDiags, exprDiags...)
	}
	if attr, exists := content.Attributes["default"]; exists {
		// Defaults are static literals; no evaluation context is needed.
		val, exprDiags := attr.Expr.Value(nil)
		allDiags = append(allDiags, exprDiags...)
		field.Default = val
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return field, nil
}
