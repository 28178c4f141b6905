package service

import (
	"github.com/google/uuid"
	"github.com/shenikar/speedbump_logger/internal/geo"
	"github.com/shenikar/speedbump_logger/internal/models"
)

// bumpCollection - коллекция в памяти, новые события в начале.
// При размере больше indexThreshold ближайшее ищется через R-tree.
type bumpCollection struct {
	items          []*models.SpeedBump
	ids            map[uuid.UUID]struct{}
	index          *geo.Index
	indexThreshold int
}

func newBumpCollection(indexThreshold int) *bumpCollection {
	return &bumpCollection{
		ids:            make(map[uuid.UUID]struct{}),
		indexThreshold: indexThreshold,
	}
}

// Replace заменяет содержимое целиком, дубликаты по ID отбрасываются
func (c *bumpCollection) Replace(bumps []*models.SpeedBump) {
	c.items = make([]*models.SpeedBump, 0, len(bumps))
	c.ids = make(map[uuid.UUID]struct{}, len(bumps))
	c.index = nil
	for _, b := range bumps {
		if _, ok := c.ids[b.ID]; ok {
			continue
		}
		c.ids[b.ID] = struct{}{}
		c.items = append(c.items, b)
	}
}

// Prepend добавляет событие в начало; false, если такой ID уже есть
func (c *bumpCollection) Prepend(b *models.SpeedBump) bool {
	if _, ok := c.ids[b.ID]; ok {
		return false
	}
	c.ids[b.ID] = struct{}{}
	c.items = append([]*models.SpeedBump{b}, c.items...)
	if c.index != nil {
		c.index.Insert(b.ID, geo.Point{Lat: b.Latitude, Lon: b.Longitude})
	}
	return true
}

func (c *bumpCollection) Clear() {
	c.items = nil
	c.ids = make(map[uuid.UUID]struct{})
	c.index = nil
}

func (c *bumpCollection) Len() int {
	return len(c.items)
}

func (c *bumpCollection) Snapshot() []*models.SpeedBump {
	out := make([]*models.SpeedBump, len(c.items))
	copy(out, c.items)
	return out
}

// Nearest возвращает расстояние в метрах до ближайшего события
func (c *bumpCollection) Nearest(p geo.Point) (float64, bool) {
	if c.indexThreshold > 0 && len(c.items) > c.indexThreshold {
		if c.index == nil {
			c.index = geo.NewIndex()
			for _, b := range c.items {
				c.index.Insert(b.ID, geo.Point{Lat: b.Latitude, Lon: b.Longitude})
			}
		}
		return c.index.Nearest(p)
	}

	points := make([]geo.Point, len(c.items))
	for i, b := range c.items {
		points[i] = geo.Point{Lat: b.Latitude, Lon: b.Longitude}
	}
	return geo.NearestDistance(p, points)
}
