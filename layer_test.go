package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	shipArchetype = `
shared_components:
  Team: {id: 1}
components:
  Position: {x: 10, y: 20}
  Velocity: null
is_base: true
`
	levelLayer = `
name: main
objects:
  - archetype: ship
    overrides: null
    components: null
  - archetype: ship
    overrides: null
    components:
      Position: {x: 1}
  - archetype: ship
    overrides:
      shared_components:
        Team: {id: 2}
      components:
        Health: null
    components:
      Velocity: {x: 3, y: 4}
  - archetype: missing
    components: null
  - archetype: ship
    components:
      Mass: {value: 1}
`
)

func loadBases(t *testing.T, f *fixture) ArchetypeSet {
	t.Helper()
	doc, err := NewDocument([]byte(shipArchetype))
	require.NoError(t, err)
	ship := Factory.NewArchetype()
	require.NoError(t, ship.FinalizeReader(f.reg, doc))
	return ArchetypeSet{"ship": ship}
}

func TestLoadEntity(t *testing.T) {
	f := newFixture(t)
	bases := loadBases(t, f)
	a := Factory.NewArchetype()
	require.NoError(t, a.FinalizeFrom(bases["ship"]))
	ref := f.register(t, a)

	tests := []struct {
		name    string
		doc     string
		want    Position
		wantErr any
	}{
		{"Defaults only", `null`, Position{X: 10, Y: 20}, nil},
		{"Partial override", `{Position: {y: 7}}`, Position{X: 10, Y: 7}, nil},
		{"Unknown component", `{Health: {current: 1}}`, Position{}, &ComponentNotFoundError{}},
		{"Not an object", `[1]`, Position{}, &DocumentError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.world.NumEntities()
			doc, err := NewDocument([]byte(tt.doc))
			require.NoError(t, err)

			id, err := f.world.LoadEntity(ref.Hash(), doc)
			if tt.wantErr != nil {
				assert.ErrorAs(t, err, tt.wantErr)
				assert.Equal(t, InvalidEntity, id)
				assert.Equal(t, before, f.world.NumEntities(), "failed load destroys the entity")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *f.position.GetFromEntity(f.world, id))
			assert.Equal(t, Velocity{}, *f.velocity.GetFromEntity(f.world, id))
		})
	}
}

func TestLoadLayer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(core)))
	bases := loadBases(t, f)

	doc, err := NewDocument([]byte(levelLayer))
	require.NoError(t, err)
	layer, err := LoadLayer(f.world, f.reg, bases, doc)
	require.NoError(t, err)

	assert.Equal(t, "main", layer.Name)
	assert.Equal(t, LayerHash("main"), layer.Hash)
	require.Len(t, layer.Entities, 3)
	assert.Equal(t, 2, logs.FilterMessage("layer object skipped").Len())

	plain, partial, custom := layer.Entities[0], layer.Entities[1], layer.Entities[2]
	assert.Same(t, f.world.Archetype(plain), f.world.Archetype(partial), "identical objects share storage")
	assert.NotSame(t, f.world.Archetype(plain), f.world.Archetype(custom))

	for _, id := range layer.Entities {
		tag := LayerComponent.SharedFromEntity(f.world, id)
		require.NotNil(t, tag)
		assert.Equal(t, layer.Hash, tag.Value)
		assert.False(t, f.world.Archetype(id).IsBase())
	}

	assert.Equal(t, Position{X: 10, Y: 20}, *f.position.GetFromEntity(f.world, plain))
	assert.Equal(t, Position{X: 1, Y: 20}, *f.position.GetFromEntity(f.world, partial))
	assert.Equal(t, Team{ID: 1}, *f.team.SharedFromEntity(f.world, plain))

	assert.Equal(t, Team{ID: 2}, *f.team.SharedFromEntity(f.world, custom))
	assert.Equal(t, Velocity{X: 3, Y: 4}, *f.velocity.GetFromEntity(f.world, custom))
	assert.Equal(t, Position{X: 10, Y: 20}, *f.position.GetFromEntity(f.world, custom))
	assert.Equal(t, Health{Current: 100, Max: 100}, *f.health.GetFromEntity(f.world, custom))
}

func TestLayerRelease(t *testing.T) {
	f := newFixture(t)
	bases := loadBases(t, f)
	doc, err := NewDocument([]byte(levelLayer))
	require.NoError(t, err)
	layer, err := LoadLayer(f.world, f.reg, bases, doc)
	require.NoError(t, err)

	archetypes := f.world.NumArchetypes()
	layer.Release()
	assert.Equal(t, archetypes, f.world.NumArchetypes(), "entities keep their storage")

	require.NoError(t, f.world.DestroyEntities(layer.Entities...))
	assert.Equal(t, 0, f.world.NumArchetypes())
}

func TestLoadLayerSameObjectsAcrossLayers(t *testing.T) {
	f := newFixture(t)
	bases := loadBases(t, f)

	load := func(name string) *LayerSet {
		doc, err := NewDocument([]byte("name: " + name + "\nobjects:\n  - archetype: ship\n"))
		require.NoError(t, err)
		layer, err := LoadLayer(f.world, f.reg, bases, doc)
		require.NoError(t, err)
		require.Len(t, layer.Entities, 1)
		return layer
	}
	main, alt := load("main"), load("alt")
	again := load("main")

	assert.NotSame(t, f.world.Archetype(main.Entities[0]), f.world.Archetype(alt.Entities[0]))
	assert.Same(t, f.world.Archetype(main.Entities[0]), f.world.Archetype(again.Entities[0]))
}

func TestLoadLayerErrors(t *testing.T) {
	f := newFixture(t)
	bases := loadBases(t, f)

	for _, src := range []string{`[1, 2]`, "name: bad\nobjects: 4\n"} {
		doc, err := NewDocument([]byte(src))
		require.NoError(t, err)
		_, err = LoadLayer(f.world, f.reg, bases, doc)
		assert.ErrorAs(t, err, &DocumentError{})
	}

	doc, err := NewDocument([]byte("name: empty\n"))
	require.NoError(t, err)
	layer, err := LoadLayer(f.world, f.reg, bases, doc)
	require.NoError(t, err)
	assert.Empty(t, layer.Entities)
}
