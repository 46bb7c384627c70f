// Profiling:
// go build ./profile/paging
// go tool pprof -http=":8000" -nodefraction=0.001 ./paging mem.pprof

package main

import (
	"log"

	"github.com/TheBitDrifter/depot"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	rounds := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	if err := run(rounds, iters, entities); err != nil {
		log.Fatal(err)
	}
	p.Stop()
}

func run(rounds, iters, numEntities int) error {
	for range rounds {
		reg := depot.Factory.NewRegistry()
		c1, err := depot.FactoryNewComponent[comp1](reg, "comp1")
		if err != nil {
			return err
		}
		c2, err := depot.FactoryNewComponent[comp2](reg, "comp2")
		if err != nil {
			return err
		}
		w, err := depot.Factory.NewWorld(reg)
		if err != nil {
			return err
		}

		a := depot.Factory.NewArchetype()
		if err := a.Add(c1); err != nil {
			return err
		}
		if err := a.Add(c2); err != nil {
			return err
		}
		if err := a.Finalize(false); err != nil {
			return err
		}
		ref, err := w.AddArchetype(a)
		if err != nil {
			return err
		}
		query := depot.Factory.NewQuery().Add(c1, nil).Add(c2, nil)
		if err := w.RegisterQuery(query); err != nil {
			return err
		}

		for range iters {
			if _, err := w.CreateEntities(ref.Hash(), numEntities); err != nil {
				return err
			}
			cursor := depot.Factory.NewCursor(query, w)
			for cursor.Next() {
				v1, v2 := c1.GetFromCursor(cursor), c2.GetFromCursor(cursor)
				v1.V += v2.V
				v1.W += v2.W
				if err := w.EnqueueDestroyEntities(cursor.Entity()); err != nil {
					return err
				}
			}
		}
		ref.Release()
	}
	return nil
}
