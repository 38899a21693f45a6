// Package blueprint implements the blueprint loader and tree linker (§4.1):
// parsing a tree of YAML blueprint documents rooted at an entry file into a
// validated, immutable BlueprintTree. The tree is the sole input the plan
// builder (internal/plan) consumes.
package blueprint

// ArtifactKind is the declared content type of an artifact or input slot.
type ArtifactKind string

const (
	KindString  ArtifactKind = "string"
	KindInt     ArtifactKind = "int"
	KindNumber  ArtifactKind = "number"
	KindBoolean ArtifactKind = "boolean"
	KindJSON    ArtifactKind = "json"
	KindImage   ArtifactKind = "image"
	KindAudio   ArtifactKind = "audio"
	KindVideo   ArtifactKind = "video"
	KindBinary  ArtifactKind = "binary"
	KindArray   ArtifactKind = "array"
)

// Meta carries the descriptive header every blueprint document declares.
type Meta struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	License     string `yaml:"license"`
}

// InputDef declares an input slot on a blueprint node.
type InputDef struct {
	Name        string       `yaml:"name"`
	Type        ArtifactKind `yaml:"type"`
	Required    bool         `yaml:"required"`
	Description string       `yaml:"description,omitempty"`
	FanIn       bool         `yaml:"fanIn,omitempty"`
}

// ArrayMapping declares a JSON-schema array path that decomposes into a
// dimension, per §4.1's decomposition rule.
type ArrayMapping struct {
	Path               string `yaml:"path"`
	CountInput         string `yaml:"countInput"`
	CountInputOffset   int    `yaml:"countInputOffset,omitempty"`
}

// ArtifactDef declares an artifact produced by a node's producer.
type ArtifactDef struct {
	Name             string         `yaml:"name"`
	Type             ArtifactKind   `yaml:"type"`
	Description      string         `yaml:"description,omitempty"`
	ItemType         ArtifactKind   `yaml:"itemType,omitempty"`
	CountInput       string         `yaml:"countInput,omitempty"`
	CountInputOffset int            `yaml:"countInputOffset,omitempty"`
	Required         bool           `yaml:"required,omitempty"`
	Arrays           []ArrayMapping `yaml:"arrays,omitempty"`
	Schema           map[string]any `yaml:"schema,omitempty"`
}

// LoopDef declares a named loop (dimension) over which a producer node is
// instantiated multiple times.
type LoopDef struct {
	Name             string `yaml:"name"`
	Parent           string `yaml:"parent,omitempty"`
	CountInput       string `yaml:"countInput"`
	CountInputOffset int    `yaml:"countInputOffset,omitempty"`
}

// ProducerImportDef declares an import of another blueprint document, scoped
// under the given alias. Alias is the namespace — not the imported
// producer's internal id.
type ProducerImportDef struct {
	Alias string `yaml:"alias"`
	Path  string `yaml:"path"`
}

// EdgeDef declares a data-flow connection between two canonical references.
// If and Conditions are mutually exclusive (parseDocument in document.go
// returns a SchemaError if both are set).
type EdgeDef struct {
	From       string          `yaml:"from"`
	To         string          `yaml:"to"`
	Note       string          `yaml:"note,omitempty"`
	If         string          `yaml:"if,omitempty"`
	Conditions *ConditionDef   `yaml:"conditions,omitempty"`
}

// CollectorDef declares a fan-in gatherer: per-coordinate outputs of `From`
// are gathered, grouped by `GroupBy` (and optionally ordered by `OrderBy`),
// into the fan-in input named by `Into`.
type CollectorDef struct {
	Name    string `yaml:"name"`
	From    string `yaml:"from"`
	Into    string `yaml:"into"`
	GroupBy string `yaml:"groupBy"`
	OrderBy string `yaml:"orderBy,omitempty"`
}

// ConditionDef is either a single clause or a logical group ({all, any}).
// Both forms decode straight from their YAML keys into this one struct;
// IsGroup reports which form a value takes.
type ConditionDef struct {
	// Clause form.
	When           string `yaml:"when,omitempty"`
	Is             *any   `yaml:"is,omitempty"`
	IsNot          *any   `yaml:"isNot,omitempty"`
	Contains       *any   `yaml:"contains,omitempty"`
	GreaterThan    *any   `yaml:"greaterThan,omitempty"`
	LessThan       *any   `yaml:"lessThan,omitempty"`
	GreaterOrEqual *any   `yaml:"greaterOrEqual,omitempty"`
	LessOrEqual    *any   `yaml:"lessOrEqual,omitempty"`
	Exists         *bool  `yaml:"exists,omitempty"`
	Matches        string `yaml:"matches,omitempty"`
	CaseSensitive  bool   `yaml:"caseSensitive,omitempty"`

	// Group form.
	All []ConditionDef `yaml:"all,omitempty"`
	Any []ConditionDef `yaml:"any,omitempty"`
}

// IsGroup reports whether this condition is a logical group rather than a
// leaf clause.
func (c ConditionDef) IsGroup() bool {
	return c.All != nil || c.Any != nil
}

// ModelDef declares a model binding for a leaf producer blueprint (one that
// imports no further producers and is itself the unit of work).
type ModelDef struct {
	Name     string         `yaml:"name"`
	Provider string         `yaml:"provider"`
	Model    string         `yaml:"model"`
	RateKey  string         `yaml:"rateKey,omitempty"`
	Config   map[string]any `yaml:"config,omitempty"`
}

// BlueprintDocument is one parsed YAML file, prior to tree linking.
type BlueprintDocument struct {
	Meta            Meta
	Inputs          []InputDef
	Artifacts       []ArtifactDef
	Loops           []LoopDef
	ProducerImports []ProducerImportDef
	Edges           []EdgeDef
	Collectors      []CollectorDef
	Conditions      map[string]ConditionDef
	Models          []ModelDef

	// SourcePath is the path this document was loaded from, as passed to
	// the BlueprintReader.
	SourcePath string
}

// IsLeaf reports whether this document has zero producer imports — a leaf
// producer blueprint. The plan builder synthesizes edges from every input
// to the producer and from the producer to every declared artifact for leaf
// documents (§4.1 step 4).
func (d *BlueprintDocument) IsLeaf() bool {
	return len(d.ProducerImports) == 0
}
