package bonetube

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// edgePrecision is the inverse of the distance under which vertices are merged when finding edges.
const edgePrecision = 1e4

type vertexKey [3]int32

type edgeKey [2]vertexKey

type edgeRecord struct {
	a, b    ms3.Vec
	normal  ms3.Vec
	removed bool
}

// Edges returns the wireframe line segments of the mesh: edges used by a single face and
// edges between two faces whose normals differ by more than thresholdDeg degrees.
// Vertices closer than 1e-4 are considered the same. A threshold of zero or less means one degree.
func (m *Mesh) Edges(thresholdDeg float32) [][2]ms3.Vec {
	if thresholdDeg <= 0 {
		thresholdDeg = 1
	}
	thresholdDot := math32.Cos(thresholdDeg * math32.Pi / 180)
	var lines [][2]ms3.Vec
	// Records are kept in insertion order so output does not depend on map iteration.
	var records []edgeRecord
	lookup := make(map[edgeKey]int)
	for i := 0; i < m.NumTriangles(); i++ {
		tri := m.Triangle(i)
		keys := [3]vertexKey{quantize(tri[0]), quantize(tri[1]), quantize(tri[2])}
		if keys[0] == keys[1] || keys[1] == keys[2] || keys[2] == keys[0] {
			continue // Degenerate.
		}
		normal := ms3.Cross(ms3.Sub(tri[1], tri[0]), ms3.Sub(tri[2], tri[0]))
		normal = ms3.Unit(normal)
		for j := 0; j < 3; j++ {
			next := (j + 1) % 3
			key := edgeKey{keys[j], keys[next]}
			reverse := edgeKey{keys[next], keys[j]}
			if ri, ok := lookup[reverse]; ok && !records[ri].removed {
				if ms3.Dot(normal, records[ri].normal) <= thresholdDot {
					lines = append(lines, [2]ms3.Vec{records[ri].a, records[ri].b})
				}
				records[ri].removed = true
				continue
			}
			if _, ok := lookup[key]; !ok {
				lookup[key] = len(records)
				records = append(records, edgeRecord{a: tri[j], b: tri[next], normal: normal})
			}
		}
	}
	for _, r := range records {
		if !r.removed {
			lines = append(lines, [2]ms3.Vec{r.a, r.b})
		}
	}
	return lines
}

func quantize(v ms3.Vec) vertexKey {
	return vertexKey{
		int32(math32.Round(v.X * edgePrecision)),
		int32(math32.Round(v.Y * edgePrecision)),
		int32(math32.Round(v.Z * edgePrecision)),
	}
}
