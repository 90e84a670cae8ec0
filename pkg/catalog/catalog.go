// Package catalog describes how each database object type is extracted and
// written: the extraction strategy with its parameterized query, the output
// subdirectory, file extension and footer, and the session statements run
// before the query.
//
// A Catalog holds the object types of one dialect together with the dialect's
// default plan. Catalogs are immutable once built by ForDialect.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajitpratap0/schemagit/pkg/errors"
)

// Strategy selects how a type's objects are extracted and sharded.
type Strategy int

const (
	// StrategySharded runs one query per shard with the shard predicate
	// evaluated by the database.
	StrategySharded Strategy = iota
	// StrategyListFetch lists object names with one query, assigns shards
	// client side, then fetches each definition with a per-object statement.
	StrategyListFetch
	// StrategySingleton runs one unsharded query.
	StrategySingleton
)

func (s Strategy) String() string {
	switch s {
	case StrategySharded:
		return "sharded"
	case StrategyListFetch:
		return "list-fetch"
	case StrategySingleton:
		return "singleton"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Param names a value bound to a query placeholder.
type Param int

const (
	// ParamSchema binds the schema being dumped.
	ParamSchema Param = iota
	// ParamObjectType binds ObjectTypeSpec.TypeValue.
	ParamObjectType
	// ParamShardCount binds the number of shards.
	ParamShardCount
	// ParamShardIndex binds the shard index.
	ParamShardIndex
)

// Template placeholders for identifiers that cannot be bound. Values are
// checked against the identifier allowlist and quoted before substitution.
const (
	SchemaPlaceholder = "{{schema}}"
	ObjectPlaceholder = "{{object}}"
)

// ObjectTypeSpec is the immutable extraction and output definition of one
// object type.
type ObjectTypeSpec struct {
	Tag      string
	Strategy Strategy

	// Query returns (object_name, resolved_type, definition) rows for the
	// sharded and singleton strategies and (object_name, resolved_type) rows
	// for list-fetch. Placeholders are bound from Params in order.
	Query  string
	Params []Param
	// TypeValue is bound for ParamObjectType; it defaults to Tag.
	TypeValue string

	// Fetch is the per-object definition statement of list-fetch types.
	Fetch string
	// FetchBindName passes the object name as the only argument of Fetch.
	FetchBindName bool
	// DefinitionColumn is the zero-based column of Fetch holding the definition.
	DefinitionColumn int

	Subdirectory string
	Extension    string
	Footer       string

	// SessionSetup statements run on the worker's session before Query.
	SessionSetup []string
	// UnescapeNewlines expands literal \n and \r escapes in the definition.
	UnescapeNewlines bool
}

// Catalog maps object-type tags to their specs for one dialect.
type Catalog struct {
	dialect string
	specs   map[string]ObjectTypeSpec
	plan    Plan
	quote   func(string) string
}

// New returns an empty catalog for dialect. quote wraps an already validated
// identifier in the dialect's identifier quotes.
func New(dialect string, quote func(string) string) *Catalog {
	return &Catalog{
		dialect: dialect,
		specs:   make(map[string]ObjectTypeSpec),
		quote:   quote,
	}
}

// Register adds spec and appends it to the default plan with defaultShards.
func (c *Catalog) Register(spec ObjectTypeSpec, defaultShards int) error {
	tag := normalizeTag(spec.Tag)
	if tag == "" {
		return errors.New(errors.ErrorTypeConfig, "object type tag is required")
	}
	if _, exists := c.specs[tag]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "object type %s already registered", tag)
	}
	if spec.Query == "" {
		return errors.Newf(errors.ErrorTypeConfig, "object type %s has no query", tag)
	}
	if spec.Strategy == StrategyListFetch && spec.Fetch == "" {
		return errors.Newf(errors.ErrorTypeConfig, "object type %s has no fetch statement", tag)
	}
	if spec.Strategy == StrategySingleton {
		defaultShards = 1
	}
	if defaultShards < 1 {
		defaultShards = 1
	}
	spec.Tag = tag
	if spec.TypeValue == "" {
		spec.TypeValue = tag
	}
	c.specs[tag] = spec
	c.plan.Phases = append(c.plan.Phases, Phase{Tag: tag, Shards: defaultShards})
	return nil
}

// Dialect returns the dialect name.
func (c *Catalog) Dialect() string {
	return c.dialect
}

// Get returns the ObjectTypeSpec registered under tag. Tags are case-insensitive.
func (c *Catalog) Get(tag string) (ObjectTypeSpec, error) {
	spec, ok := c.specs[normalizeTag(tag)]
	if !ok {
		return ObjectTypeSpec{}, errors.Wrap(errors.ErrUnknownObjectType, errors.ErrorTypeConfig,
			fmt.Sprintf("object type %q is not defined for %s", tag, c.dialect)).
			WithDetail("object_type", tag)
	}
	return spec, nil
}

// Tags returns the registered tags in default plan order.
func (c *Catalog) Tags() []string {
	tags := make([]string, 0, len(c.plan.Phases))
	for _, p := range c.plan.Phases {
		tags = append(tags, p.Tag)
	}
	return tags
}

// DefaultPlan returns a copy of the dialect's default plan.
func (c *Catalog) DefaultPlan() Plan {
	return Plan{Phases: append([]Phase(nil), c.plan.Phases...)}
}

// Statement renders spec.Query for one shard and returns it with its bind
// arguments.
func (c *Catalog) Statement(spec ObjectTypeSpec, schema string, shards, shard int) (string, []any, error) {
	query, err := c.render(spec.Query, schema, "")
	if err != nil {
		return "", nil, err
	}
	args := make([]any, 0, len(spec.Params))
	for _, p := range spec.Params {
		switch p {
		case ParamSchema:
			args = append(args, schema)
		case ParamObjectType:
			args = append(args, spec.TypeValue)
		case ParamShardCount:
			args = append(args, shards)
		case ParamShardIndex:
			args = append(args, shard)
		default:
			return "", nil, errors.Newf(errors.ErrorTypeInternal, "unknown query parameter %d", int(p))
		}
	}
	return query, args, nil
}

// FetchStatement renders the per-object definition statement of a list-fetch
// type.
func (c *Catalog) FetchStatement(spec ObjectTypeSpec, schema, object string) (string, []any, error) {
	if spec.Strategy != StrategyListFetch {
		return "", nil, errors.Newf(errors.ErrorTypeInternal, "object type %s is not list-fetch", spec.Tag)
	}
	if spec.FetchBindName {
		query, err := c.render(spec.Fetch, schema, "")
		return query, []any{object}, err
	}
	query, err := c.render(spec.Fetch, schema, object)
	return query, nil, err
}

func (c *Catalog) render(tmpl, schema, object string) (string, error) {
	if strings.Contains(tmpl, SchemaPlaceholder) {
		q, err := c.quoteIdent(schema)
		if err != nil {
			return "", err
		}
		tmpl = strings.ReplaceAll(tmpl, SchemaPlaceholder, q)
	}
	if strings.Contains(tmpl, ObjectPlaceholder) {
		q, err := c.quoteIdent(object)
		if err != nil {
			return "", err
		}
		tmpl = strings.ReplaceAll(tmpl, ObjectPlaceholder, q)
	}
	return tmpl, nil
}

func (c *Catalog) quoteIdent(ident string) (string, error) {
	if err := ValidateIdentifier(ident); err != nil {
		return "", err
	}
	if c.quote == nil {
		return ident, nil
	}
	return c.quote(ident), nil
}

func normalizeTag(tag string) string {
	return strings.ToUpper(strings.Join(strings.Fields(tag), " "))
}

var builders = map[string]func() (*Catalog, error){
	"oracle":   Oracle,
	"postgres": Postgres,
	"mysql":    MySQL,
	"sqlite":   SQLite,
}

// ForDialect builds the catalog of a dialect.
func ForDialect(dialect string) (*Catalog, error) {
	build, ok := builders[strings.ToLower(dialect)]
	if !ok {
		return nil, errors.Wrap(errors.ErrUnknownDialect, errors.ErrorTypeConfig,
			fmt.Sprintf("dialect %q is not supported (supported: %s)", dialect, strings.Join(Dialects(), ", ")))
	}
	return build()
}

// Dialects returns the supported dialect names, sorted.
func Dialects() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type entry struct {
	spec   ObjectTypeSpec
	shards int
}

func build(c *Catalog, entries []entry) (*Catalog, error) {
	for _, e := range entries {
		if err := c.Register(e.spec, e.shards); err != nil {
			return nil, err
		}
	}
	return c, nil
}
