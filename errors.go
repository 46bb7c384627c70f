package depot

import (
	"fmt"
	"reflect"
)

type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked"
}

type MissingCapabilityError struct {
	Component  string
	Capability string
}

func (e MissingCapabilityError) Error() string {
	return fmt.Sprintf("component %s does not provide %s", e.Component, e.Capability)
}

type ComponentExistsError struct {
	Component string
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists: %s", e.Component)
}

type ComponentNotFoundError struct {
	Component string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist: %s", e.Component)
}

type UnknownComponentError struct {
	Name string
}

func (e UnknownComponentError) Error() string {
	return fmt.Sprintf("no component registered as %q", e.Name)
}

type DuplicateComponentError struct {
	Name string
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("a different component is already registered as %q", e.Name)
}

type RegistryFullError struct {
	Capacity int
}

func (e RegistryFullError) Error() string {
	return fmt.Sprintf("registry at maximum capacity (%d)", e.Capacity)
}

type PointerComponentError struct {
	Name string
	Type reflect.Type
}

func (e PointerComponentError) Error() string {
	return fmt.Sprintf("component %s: type %v holds pointers and cannot live in page memory", e.Name, e.Type)
}

type ArchetypeRegisteredError struct {
	Hash uint64
}

func (e ArchetypeRegisteredError) Error() string {
	return fmt.Sprintf("archetype %016x is registered and can no longer change", e.Hash)
}

type ArchetypeNotFinalizedError struct{}

func (e ArchetypeNotFinalizedError) Error() string {
	return "archetype has not been finalized"
}

type UnknownArchetypeError struct {
	Hash uint64
}

func (e UnknownArchetypeError) Error() string {
	return fmt.Sprintf("no archetype registered with hash %016x", e.Hash)
}

type BaseArchetypeError struct {
	Hash uint64
}

func (e BaseArchetypeError) Error() string {
	return fmt.Sprintf("archetype %016x is a base archetype and holds no entities", e.Hash)
}

type InvalidEntityError struct {
	ID EntityID
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity %d does not exist", e.ID)
}

type QueryRegisteredError struct{}

func (e QueryRegisteredError) Error() string {
	return "query is already registered"
}

type DocumentError struct {
	Field  string
	Reason string
}

func (e DocumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("document: %s", e.Reason)
	}
	return fmt.Sprintf("document field %q: %s", e.Field, e.Reason)
}
