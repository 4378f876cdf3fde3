package uid

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type UUIDGenerator struct {
	generate func() (uuid.UUID, error)
}

func NewUUIDGenerator(version string) (*UUIDGenerator, error) {
	switch version {
	case "v4":
		return &UUIDGenerator{generate: uuid.NewRandom}, nil
	case "", "v7":
		return &UUIDGenerator{generate: uuid.NewV7}, nil
	}
	return nil, errors.Errorf("unsupported uuid version: %s", version)
}

func (g *UUIDGenerator) Generate() any {
	return g.Next()
}

// Next 熵源读取失败时 panic，与 uuid.New 一致
func (g *UUIDGenerator) Next() uuid.UUID {
	return uuid.Must(g.generate())
}
