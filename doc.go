/*
Package depot provides paged, content addressed archetype storage for
Entity-Component-System worlds.

Entities with the same schema live together in fixed size pages. Within a
page, entities are grouped in tiles of four and every per-entity component is
stored as four consecutive instances, so systems can process a component of
four entities at once. Shared components are stored once per archetype and are
part of its identity: two archetypes with the same components and the same
shared values resolve to the same storage.

Core Concepts:

  - Component: a named, registered Go type with its operation table.
  - Archetype: a finalized schema of shared and per-entity components.
  - World: the entity index plus the storage of every registered archetype.
  - Query: a standing filter whose outputs grow and shrink with the archetypes it matches.

Basic Usage:

	reg := depot.Factory.NewRegistry()
	position, _ := depot.FactoryNewComponent[Position](reg, "Position")
	velocity, _ := depot.FactoryNewComponent[Velocity](reg, "Velocity")

	a := depot.Factory.NewArchetype()
	a.Add(position)
	a.Add(velocity)
	a.Finalize(false)

	world, _ := depot.Factory.NewWorld(reg)
	ref, _ := world.AddArchetype(a)
	world.CreateEntities(ref.Hash(), 100)

	query := depot.Factory.NewQuery().Add(position, nil).Add(velocity, nil)
	world.RegisterQuery(query)

	cursor := depot.Factory.NewCursor(query, world)
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Archetypes and entities can also be authored as YAML or JSON documents; see
Archetype.FinalizeReader, World.LoadEntity and LoadLayer.
*/
package depot
