package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationQueue(t *testing.T) {
	tests := []struct {
		name         string
		enqueue      func(f *fixture, ids []EntityID, from, to uint64) error
		wantEntities int
		check        func(t *testing.T, f *fixture, ids []EntityID, to ArchetypeReference)
	}{
		{
			name: "Create",
			enqueue: func(f *fixture, _ []EntityID, from, _ uint64) error {
				return f.world.EnqueueCreateEntities(from, 4)
			},
			wantEntities: 6,
		},
		{
			name: "Destroy",
			enqueue: func(f *fixture, ids []EntityID, _, _ uint64) error {
				return f.world.EnqueueDestroyEntities(ids[0], ids[0])
			},
			wantEntities: 1,
		},
		{
			name: "Migrate",
			enqueue: func(f *fixture, ids []EntityID, _, to uint64) error {
				return f.world.EnqueueMigrate(ids[1], to)
			},
			wantEntities: 2,
			check: func(t *testing.T, f *fixture, ids []EntityID, to ArchetypeReference) {
				assert.Same(t, to.Archetype(), f.world.Archetype(ids[1]))
				assert.Equal(t, Position{X: 1}, *f.position.GetFromEntity(f.world, ids[1]))
			},
		},
		{
			name: "Destroy cancels migrate",
			enqueue: func(f *fixture, ids []EntityID, _, to uint64) error {
				if err := f.world.EnqueueMigrate(ids[0], to); err != nil {
					return err
				}
				return f.world.EnqueueDestroyEntities(ids[0])
			},
			wantEntities: 1,
			check: func(t *testing.T, f *fixture, ids []EntityID, to ArchetypeReference) {
				assert.Equal(t, 0, to.EntityData().NumEntities())
			},
		},
		{
			name: "Migrate after destroy is dropped",
			enqueue: func(f *fixture, ids []EntityID, _, to uint64) error {
				if err := f.world.EnqueueDestroyEntities(ids[0]); err != nil {
					return err
				}
				return f.world.EnqueueMigrate(ids[0], to)
			},
			wantEntities: 1,
		},
		{
			name: "Creates run before destroys",
			enqueue: func(f *fixture, ids []EntityID, from, _ uint64) error {
				if err := f.world.EnqueueDestroyEntities(ids...); err != nil {
					return err
				}
				return f.world.EnqueueCreateEntities(from, 2)
			},
			wantEntities: 2,
			check: func(t *testing.T, f *fixture, ids []EntityID, _ ArchetypeReference) {
				// the new entities cannot have reused the destroyed ids
				assert.False(t, f.world.Alive(ids[0]))
				assert.False(t, f.world.Alive(ids[1]))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			from := f.register(t, f.archetype(t, nil, f.position))
			to := f.register(t, f.archetype(t, nil, f.position, f.velocity))
			ids, err := f.world.CreateEntities(from.Hash(), 2)
			require.NoError(t, err)
			*f.position.GetFromEntity(f.world, ids[1]) = Position{X: 1}

			f.world.Lock()
			require.NoError(t, tt.enqueue(f, ids, from.Hash(), to.Hash()))
			assert.Equal(t, 2, f.world.NumEntities(), "nothing runs while locked")
			require.NoError(t, f.world.Unlock())

			assert.Equal(t, tt.wantEntities, f.world.NumEntities())
			if tt.check != nil {
				tt.check(t, f, ids, to)
			}
		})
	}
}

func TestWorldLockNesting(t *testing.T) {
	f := newFixture(t)
	ref := f.register(t, f.archetype(t, nil, f.position))

	f.world.Lock()
	f.world.Lock()
	f.world.AddLock(3)
	require.NoError(t, f.world.EnqueueCreateEntities(ref.Hash(), 1))

	require.NoError(t, f.world.Unlock())
	require.NoError(t, f.world.Unlock())
	assert.True(t, f.world.Locked(), "lock bit still held")
	assert.Equal(t, 0, f.world.NumEntities())

	require.NoError(t, f.world.RemoveLock(3))
	assert.False(t, f.world.Locked())
	assert.Equal(t, 1, f.world.NumEntities())
}

func TestEnqueueWhileUnlocked(t *testing.T) {
	f := newFixture(t)
	from := f.register(t, f.archetype(t, nil, f.position))
	to := f.register(t, f.archetype(t, nil, f.velocity))

	require.NoError(t, f.world.EnqueueCreateEntities(from.Hash(), 2))
	assert.Equal(t, 2, f.world.NumEntities())

	require.NoError(t, f.world.EnqueueMigrate(0, to.Hash()))
	assert.Same(t, to.Archetype(), f.world.Archetype(0))

	require.NoError(t, f.world.EnqueueDestroyEntities(0, 1))
	assert.Equal(t, 0, f.world.NumEntities())

	assert.ErrorAs(t, f.world.EnqueueDestroyEntities(0), &InvalidEntityError{})
	assert.ErrorAs(t, f.world.EnqueueMigrate(0, to.Hash()), &InvalidEntityError{})
	assert.ErrorAs(t, f.world.EnqueueCreateEntities(42, 1), &UnknownArchetypeError{})
}

func TestUnlockReportsFailedOperations(t *testing.T) {
	f := newFixture(t)
	ref := f.register(t, f.archetype(t, nil, f.position))

	f.world.Lock()
	require.NoError(t, f.world.EnqueueCreateEntities(ref.Hash(), 1))
	require.NoError(t, f.world.RemoveArchetype(ref.Hash()))

	err := f.world.Unlock()
	assert.ErrorAs(t, err, &UnknownArchetypeError{})
	assert.Equal(t, 0, f.world.NumEntities())
}

func TestArchetypeTeardownWhileLocked(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, f.archetype(t, nil, f.position))
	b := f.register(t, f.archetype(t, nil, f.velocity))

	x, err := f.world.CreateEntity(a.Hash())
	require.NoError(t, err)

	f.world.Lock()
	require.NoError(t, f.world.EnqueueDestroyEntities(x))
	require.NoError(t, f.world.EnqueueCreateEntities(b.Hash(), 1))
	assert.ErrorAs(t, f.world.RemoveArchetype(a.Hash()), &LockedWorldError{})
	assert.True(t, f.world.Alive(x))
	require.NoError(t, f.world.Unlock())

	assert.False(t, f.world.Alive(x))
	assert.Equal(t, 1, f.world.NumEntities())
	assert.Equal(t, 1, b.EntityData().NumEntities(), "queued create survives the queued destroy")
}

func TestReleaseWhileLocked(t *testing.T) {
	tests := []struct {
		name      string
		revive    bool
		wantAlive bool
	}{
		{"Released storage is removed on unlock", false, false},
		{"Storage used again before unlock survives", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			q := Factory.NewQuery().Add(f.position, nil)
			require.NoError(t, f.world.RegisterQuery(q))
			ref := f.register(t, f.archetype(t, nil, f.position))
			hash := ref.Hash()

			f.world.Lock()
			ref.Release()
			assert.NotNil(t, f.world.EntityData(hash), "no teardown while locked")
			assert.Equal(t, 1, q.Len())
			if tt.revive {
				require.NoError(t, f.world.EnqueueCreateEntities(hash, 2))
			}
			require.NoError(t, f.world.Unlock())

			assert.Equal(t, tt.wantAlive, f.world.EntityData(hash) != nil)
			if tt.wantAlive {
				assert.Equal(t, 1, q.Len())
				assert.Equal(t, 2, f.world.NumEntities())
			} else {
				assert.Equal(t, 0, q.Len())
				assert.Equal(t, 0, f.world.NumArchetypes())
			}
		})
	}
}
