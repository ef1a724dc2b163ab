package file

import (
	"context"
	"fmt"

	"github.com/relaybridge/wayfarer/internal/skills"
	"github.com/relaybridge/wayfarer/internal/store"
)

// FileSkillStore wraps a skills.Loader to implement store.SkillStore, for
// RPC methods that want skill data without depending on the loader package.
type FileSkillStore struct {
	loader *skills.Loader
}

func NewFileSkillStore(loader *skills.Loader) *FileSkillStore {
	return &FileSkillStore{loader: loader}
}

func (f *FileSkillStore) List(ctx context.Context) ([]store.SkillData, error) {
	all := f.loader.FilterSkills(nil)
	out := make([]store.SkillData, len(all))
	for i, sk := range all {
		out[i] = store.SkillData{Name: sk.Name, Description: sk.Description, Tags: sk.Tags, Body: sk.Body}
	}
	return out, nil
}

func (f *FileSkillStore) Get(ctx context.Context, name string) (*store.SkillData, error) {
	sk, ok := f.loader.Get(name)
	if !ok {
		return nil, fmt.Errorf("skill %q not found", name)
	}
	return &store.SkillData{Name: sk.Name, Description: sk.Description, Tags: sk.Tags, Body: sk.Body}, nil
}
