package loaders

import (
	"fmt"
	"os"
)

// BinaryLoader reads a file verbatim, e.g. compiled shader bytecode.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (interface{}, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("binary loader: %w", err)
	}
	return buf, nil
}

func (bl *BinaryLoader) Unload(interface{}) error {
	return nil
}
