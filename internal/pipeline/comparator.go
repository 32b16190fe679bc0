// Package pipeline runs layout comparisons end to end: canonicalization,
// matching, type extraction, graph validation and record rendering, and
// drives batches of version pairs.
package pipeline

import (
	"fmt"
	"time"

	"github.com/dbsmedya/layoutdiff/internal/cidutil"
	"github.com/dbsmedya/layoutdiff/internal/compare"
	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/graph"
	"github.com/dbsmedya/layoutdiff/internal/layout"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/types"
)

// Options selects the policies of one comparison.
type Options struct {
	MemberPolicy    compare.MemberPolicy
	MatchPolicy     compare.MatchPolicy
	CollisionPolicy layout.CollisionPolicy
	Indent          int
}

// DefaultOptions returns partial member matching, many-to-many slot
// matching, last-write-wins collisions and two-space indentation.
func DefaultOptions() Options {
	return Options{
		MemberPolicy:    compare.PartialMemberMatch,
		MatchPolicy:     compare.MatchManyToMany,
		CollisionPolicy: layout.CollisionReplace,
		Indent:          2,
	}
}

// OptionsFromConfig parses comparison and output settings.
func OptionsFromConfig(cc config.ComparisonConfig, out config.OutputConfig) (Options, error) {
	member, err := compare.ParseMemberPolicy(cc.MemberPolicy)
	if err != nil {
		return Options{}, err
	}
	match, err := compare.ParseMatchPolicy(cc.MatchPolicy)
	if err != nil {
		return Options{}, err
	}
	collision, err := layout.ParseCollisionPolicy(cc.CollisionPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MemberPolicy:    member,
		MatchPolicy:     match,
		CollisionPolicy: collision,
		Indent:          out.Indent,
	}, nil
}

// Result is everything one successful comparison produces.
type Result struct {
	CommonObjects     []format.CommonObjectRecord
	Types             []format.TypeRecord
	CommonObjectsJSON []byte
	TypesJSON         []byte
	ReportCID         string

	Objects        []compare.CommonObject
	Merged         []compare.MergedType
	Graph          *graph.Graph
	MigrationOrder []string
	Collisions     []layout.Collision
	Stats          types.ComparisonStats
}

// Comparator compares two layouts.
type Comparator struct {
	opts   Options
	logger *logger.Logger
}

// NewComparator creates a comparator. A nil logger discards output.
func NewComparator(opts Options, log *logger.Logger) *Comparator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Comparator{opts: opts, logger: log}
}

// Compare runs the full comparison of oldLayout against newLayout. Neither
// input is modified. On error no partial result is returned.
func (c *Comparator) Compare(oldLayout, newLayout *layout.Layout) (*Result, error) {
	start := time.Now()
	stats := types.ComparisonStats{
		OldStorageEntries: len(oldLayout.Storage),
		NewStorageEntries: len(newLayout.Storage),
	}

	oldCanon, oldCollisions, err := c.canonicalize(oldLayout, compare.SideOld)
	if err != nil {
		return nil, err
	}
	newCanon, newCollisions, err := c.canonicalize(newLayout, compare.SideNew)
	if err != nil {
		return nil, err
	}
	collisions := append(oldCollisions, newCollisions...)
	stats.OldTypes = oldCanon.Types.Len()
	stats.NewTypes = newCanon.Types.Len()
	stats.Collisions = len(collisions)

	engine := compare.NewEngine(c.opts.MemberPolicy)
	objects, err := compare.Match(oldCanon.Storage, newCanon.Storage, oldCanon.Types, newCanon.Types, engine, c.opts.MatchPolicy)
	if err != nil {
		return nil, fmt.Errorf("match storage entries: %w", err)
	}
	stats.CommonObjects = len(objects)
	c.logger.Debugw("Storage entries matched",
		"common_objects", len(objects),
		"member_policy", c.opts.MemberPolicy,
		"match_policy", c.opts.MatchPolicy,
	)

	extractor := compare.NewExtractor(oldCanon.Types, newCanon.Types)
	merged, err := extractor.Extract(objects)
	if err != nil {
		return nil, fmt.Errorf("extract type graph: %w", err)
	}
	stats.MergedTypes = len(merged)
	stats.DroppedMembers = extractor.DroppedMembers()

	roots := make([]string, 0, len(objects))
	for _, obj := range objects {
		roots = append(roots, obj.Type)
	}
	g, err := graph.BuildFromTypes(merged, roots)
	if err != nil {
		c.logger.Errorw("Type graph is not acyclic", "error", err)
		return nil, fmt.Errorf("type graph: %w", err)
	}
	order, err := g.MigrationOrder()
	if err != nil {
		return nil, fmt.Errorf("type graph: %w", err)
	}

	commonRecords := format.CommonObjects(objects)
	typeRecords, err := format.Types(merged)
	if err != nil {
		return nil, fmt.Errorf("render type graph: %w", err)
	}
	commonJSON, err := format.Marshal(commonRecords, c.opts.Indent)
	if err != nil {
		return nil, fmt.Errorf("encode common objects: %w", err)
	}
	typesJSON, err := format.Marshal(typeRecords, c.opts.Indent)
	if err != nil {
		return nil, fmt.Errorf("encode type graph: %w", err)
	}

	stats.Duration = time.Since(start)
	result := &Result{
		CommonObjects:     commonRecords,
		Types:             typeRecords,
		CommonObjectsJSON: commonJSON,
		TypesJSON:         typesJSON,
		ReportCID:         cidutil.ReportCID(commonJSON, typesJSON),
		Objects:           objects,
		Merged:            merged,
		Graph:             g,
		MigrationOrder:    order,
		Collisions:        collisions,
		Stats:             stats,
	}

	c.logger.Infow("Comparison complete",
		"common_objects", stats.CommonObjects,
		"merged_types", stats.MergedTypes,
		"dropped_members", stats.DroppedMembers,
		"collisions", stats.Collisions,
		"cid", result.ReportCID,
		"duration", stats.Duration,
	)
	return result, nil
}

func (c *Comparator) canonicalize(l *layout.Layout, side compare.Side) (*layout.Layout, []layout.Collision, error) {
	canon, collisions, err := layout.Canonicalize(l, c.opts.CollisionPolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("canonicalize %s layout: %w", side, err)
	}

	log := c.logger.WithSide(string(side))
	for _, col := range collisions {
		log.Warnw("Canonical type identifier collision, keeping last definition",
			"canonical", col.Canonical,
			"kept", col.Kept,
			"replaced", col.Replaced,
		)
	}
	return canon, collisions, nil
}
