// Command kdforge-bench builds a kd-tree over a synthetic scene of random
// triangles, reports the resulting BuildStats, and fires a batch of random
// rays at it to report hit rate and throughput. It exists purely as ambient
// test/debugging tooling for this module, not as a shipped product.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree"
)

func randomMesh(rng *rand.Rand, triangles int, extent float64) *geom.Mesh {
	verts := make([]geom.Vec3, 0, triangles*3)
	idx := make([]uint32, 0, triangles*3)
	randPoint := func() geom.Vec3 {
		return geom.Vec3{
			X: (rng.Float64()*2 - 1) * extent,
			Y: (rng.Float64()*2 - 1) * extent,
			Z: (rng.Float64()*2 - 1) * extent,
		}
	}
	for i := 0; i < triangles; i++ {
		base := randPoint()
		jitter := extent * 0.02
		v0 := base
		v1 := base.Add(geom.Vec3{X: jitter, Y: 0, Z: 0})
		v2 := base.Add(geom.Vec3{X: 0, Y: jitter, Z: 0})
		n := uint32(len(verts))
		verts = append(verts, v0, v1, v2)
		idx = append(idx, n, n+1, n+2)
	}
	return &geom.Mesh{Vertices: verts, Indices: idx}
}

func main() {
	triangles := flag.Int("triangles", 100000, "number of random triangles in the synthetic scene")
	rays := flag.Int("rays", 100000, "number of random shadow rays to fire")
	seed := flag.Int64("seed", 1, "random seed")
	parallel := flag.Bool("parallel", true, "enable the parallel builder")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	extent := 100.0

	mt := kdtree.NewMeshTree()
	if _, err := mt.AddMesh(randomMesh(rng, *triangles, extent)); err != nil {
		fmt.Fprintln(os.Stderr, "kdforge-bench: add mesh:", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := mt.Build(kdtree.WithParallelBuild(*parallel)); err != nil {
		fmt.Fprintln(os.Stderr, "kdforge-bench: build:", err)
		os.Exit(1)
	}
	buildDur := time.Since(start)

	stats := mt.Stats()
	fmt.Printf("build time:        %v\n", buildDur)
	fmt.Printf("inner nodes:       %d\n", stats.InnerNodes)
	fmt.Printf("leaf nodes:        %d (%d non-empty)\n", stats.LeafNodes, stats.NonEmptyLeaves)
	fmt.Printf("prim index count:  %d\n", stats.PrimIndexCount)
	fmt.Printf("retracted subtrees:%d\n", stats.Retracted)
	fmt.Printf("pruned clips:      %d\n", stats.Pruned)
	fmt.Printf("avg leaf depth:    %.2f (stddev %.2f)\n", stats.AverageLeafDepth, stats.DepthStdDev)
	fmt.Printf("estimated SAH cost:%.2f\n", stats.EstimatedSAHCost)

	box := mt.BoundingBox()
	hits := 0
	start = time.Now()
	for i := 0; i < *rays; i++ {
		origin := box.Min.Add(box.Extent().Scale(rng.Float64()))
		dir := geom.Vec3{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}
		r := geom.NewRay(origin, dir)
		if _, ok := mt.RayIntersect(r, true); ok {
			hits++
		}
	}
	queryDur := time.Since(start)

	fmt.Printf("rays fired:        %d\n", *rays)
	fmt.Printf("hit rate:          %.2f%%\n", 100*float64(hits)/float64(*rays))
	fmt.Printf("query time:        %v (%v/ray)\n", queryDur, queryDur/time.Duration(*rays))
}
