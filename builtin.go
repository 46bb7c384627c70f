package depot

// PageSize overrides the page budget, in bytes, of the archetype that carries
// it as a shared component.
type PageSize struct {
	Value int32 `yaml:"value"`
}

// Layer tags an archetype with the hash of the layer that spawned it.
type Layer struct {
	Value uint64 `yaml:"value"`
}

var (
	PageSizeComponent = mustDescribe[PageSize]("PageSize", SharedOnly[PageSize]())
	LayerComponent    = mustDescribe[Layer]("Layer", SharedOnly[Layer]())
)

func mustDescribe[T any](name string, opts ...ComponentOption[T]) AccessibleComponent[T] {
	desc, err := DescribeComponent[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return AccessibleComponent[T]{ComponentDescriptor: desc}
}
