package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Tagged struct {
	Name *string
}

func TestRegistryBasicOperations(t *testing.T) {
	reg := Factory.NewRegistry()
	items := []string{"Position", "Velocity", "Rotation"}

	assert.Equal(t, 2, reg.Len(), "builtins are registered")
	for _, name := range items {
		desc := NewComponentDescriptor[Position](name, ComponentOps{})
		require.NoError(t, reg.Register(desc))
		require.NoError(t, reg.Register(desc), "registering the same descriptor twice is a no-op")

		got, ok := reg.Lookup(name)
		require.True(t, ok)
		assert.Same(t, desc, got)

		got, ok = reg.LookupHash(ComponentHash(name))
		require.True(t, ok)
		assert.Same(t, desc, got)
	}
	assert.Equal(t, 2+len(items), reg.Len())

	_, ok := reg.Lookup("Missing")
	assert.False(t, ok)

	for _, name := range []string{"PageSize", "Layer"} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := Factory.NewRegistry()
	_, err := FactoryNewComponent[Position](reg, "Position")
	require.NoError(t, err)

	_, err = FactoryNewComponent[Velocity](reg, "Position")
	assert.ErrorAs(t, err, &DuplicateComponentError{})
}

func TestRegistryCapacity(t *testing.T) {
	reg := Factory.NewRegistryWithCapacity(4)
	require.NoError(t, reg.Register(NewComponentDescriptor[Position]("A", ComponentOps{})))
	require.NoError(t, reg.Register(NewComponentDescriptor[Position]("B", ComponentOps{})))

	err := reg.Register(NewComponentDescriptor[Position]("C", ComponentOps{}))
	assert.ErrorAs(t, err, &RegistryFullError{})
	assert.Equal(t, 4, reg.Len())
}

func TestRegistryComponentsOrder(t *testing.T) {
	reg := Factory.NewRegistry()
	names := []string{"Zeta", "Alpha", "Mid"}
	for _, name := range names {
		require.NoError(t, reg.Register(NewComponentDescriptor[Rotation](name, ComponentOps{})))
	}

	components := reg.Components()
	require.Len(t, components, 5)
	for i, name := range names {
		assert.Equal(t, name, components[2+i].Name())
	}
}

func TestRegisterComponentRejectsPointers(t *testing.T) {
	reg := Factory.NewRegistry()
	_, err := RegisterComponent[Tagged](reg, "Tagged")
	var ptrErr PointerComponentError
	require.ErrorAs(t, err, &ptrErr)
	assert.Equal(t, "Tagged", ptrErr.Name)

	_, err = RegisterComponent[[4]float32](reg, "Vec4")
	assert.NoError(t, err)
	_, err = RegisterComponent[[]float32](reg, "Slice")
	assert.ErrorAs(t, err, &PointerComponentError{})
}

func TestComponentDescriptorCapabilities(t *testing.T) {
	tests := []struct {
		name      string
		describe  func() (*ComponentDescriptor, error)
		shared    bool
		perEntity bool
		size      int32
	}{
		{"Default", func() (*ComponentDescriptor, error) { return DescribeComponent[Position]("P") }, true, true, 16},
		{"Shared only", func() (*ComponentDescriptor, error) {
			return DescribeComponent[Team]("T", SharedOnly[Team]())
		}, true, false, 8},
		{"Per entity only", func() (*ComponentDescriptor, error) {
			return DescribeComponent[Rotation]("R", PerEntityOnly[Rotation]())
		}, false, true, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := tt.describe()
			require.NoError(t, err)
			assert.Equal(t, tt.shared, desc.CanBeShared())
			assert.Equal(t, tt.perEntity, desc.CanBePerEntity())
			assert.Equal(t, tt.size, desc.Size())
			assert.Equal(t, ComponentHash(desc.Name()), desc.Hash())
		})
	}
}
