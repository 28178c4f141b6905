package geo

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	// candidates pulled from the tree before the exact haversine comparison
	nearestCandidates = 8
)

type spatialItem struct {
	id    uuid.UUID
	point Point
	rect  *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index is an R-tree over bump positions. Not safe for concurrent use.
type Index struct {
	tree  *rtreego.Rtree
	items map[uuid.UUID]*spatialItem
}

func NewIndex() *Index {
	return &Index{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		items: make(map[uuid.UUID]*spatialItem),
	}
}

// Insert adds a point; an id already present is ignored.
func (i *Index) Insert(id uuid.UUID, p Point) {
	if _, ok := i.items[id]; ok {
		return
	}
	item := &spatialItem{
		id:    id,
		point: p,
		rect:  rtreego.Point{p.Lat, p.Lon}.ToRect(tolerance),
	}
	i.items[id] = item
	i.tree.Insert(item)
}

func (i *Index) Len() int {
	return len(i.items)
}

// Reset drops every point.
func (i *Index) Reset() {
	i.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	i.items = make(map[uuid.UUID]*spatialItem)
}

// Nearest returns the distance in meters to the closest indexed point.
func (i *Index) Nearest(p Point) (float64, bool) {
	if len(i.items) == 0 {
		return 0, false
	}
	k := nearestCandidates
	if k > len(i.items) {
		k = len(i.items)
	}

	best := math.Inf(1)
	for _, s := range i.tree.NearestNeighbors(k, rtreego.Point{p.Lat, p.Lon}) {
		if item, ok := s.(*spatialItem); ok && item != nil {
			best = math.Min(best, DistanceMeters(p, item.point))
		}
	}
	if math.IsInf(best, 1) {
		return i.scan(p)
	}
	if best == 0 {
		return 0, true
	}

	// Degree-space ranking can miss the true nearest at high latitudes,
	// so re-check every point inside the box that bounds the best radius.
	degLat := best / EarthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(toRad(math.Min(90, math.Abs(p.Lat)+degLat)))
	if cosLat < 1e-6 {
		return i.scan(p)
	}
	degLon := degLat / cosLat
	if degLon >= 180 {
		return i.scan(p)
	}
	// Box crossing the antimeridian is searched again shifted by 360 degrees.
	minLon, maxLon := p.Lon-degLon, p.Lon+degLon
	boxes := [][2]float64{{minLon, maxLon}}
	if maxLon > 180 {
		boxes = append(boxes, [2]float64{minLon - 360, maxLon - 360})
	}
	if minLon < -180 {
		boxes = append(boxes, [2]float64{minLon + 360, maxLon + 360})
	}
	for _, b := range boxes {
		box, err := rtreego.NewRect(
			rtreego.Point{p.Lat - degLat, b[0]},
			[]float64{2 * degLat, b[1] - b[0]},
		)
		if err != nil {
			return i.scan(p)
		}
		for _, s := range i.tree.SearchIntersect(box) {
			if item, ok := s.(*spatialItem); ok && item != nil {
				best = math.Min(best, DistanceMeters(p, item.point))
			}
		}
	}
	return best, true
}

func (i *Index) scan(p Point) (float64, bool) {
	points := make([]Point, 0, len(i.items))
	for _, item := range i.items {
		points = append(points, item.point)
	}
	return NearestDistance(p, points)
}
