package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/easyops/contextengine-go/pkg/core/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DeclarationRegistry 上下文计划注册表（名称 → 计划）。
// 计划注册后不可变，装配过程只读。
type DeclarationRegistry struct {
	mu           sync.RWMutex
	declarations map[string]*ContextDeclaration
}

// NewDeclarationRegistry 创建上下文计划注册表
func NewDeclarationRegistry() *DeclarationRegistry {
	return &DeclarationRegistry{
		declarations: make(map[string]*ContextDeclaration),
	}
}

// Register 注册上下文计划。
// 计划在注册时验证，无效计划不会进入注册表。
func (r *DeclarationRegistry) Register(decl *ContextDeclaration) error {
	if decl == nil {
		return errors.WrapError(errors.ErrInvalidDeclaration, "nil declaration")
	}
	decl.Policy.ApplyDefaults()
	if err := decl.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.declarations[decl.Name] = decl
	return nil
}

// Get 按名称获取上下文计划
func (r *DeclarationRegistry) Get(name string) (*ContextDeclaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.declarations[name]
	return decl, ok
}

// Names 返回所有已注册的计划名称
func (r *DeclarationRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.declarations))
	for name := range r.declarations {
		names = append(names, name)
	}
	return names
}

// LoadFile 从 YAML 文件加载一个上下文计划并注册
func (r *DeclarationRegistry) LoadFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return errors.WrapError(err, fmt.Sprintf("loading declaration file %s", path))
	}

	decl := &ContextDeclaration{}
	if err := k.Unmarshal("", decl); err != nil {
		return errors.WrapError(errors.ErrInvalidDeclaration,
			fmt.Sprintf("parsing declaration file %s: %v", path, err))
	}

	if err := r.Register(decl); err != nil {
		return errors.WrapError(err, fmt.Sprintf("declaration file %s", path))
	}
	return nil
}

// LoadDir 从目录加载所有 YAML 上下文计划文件（*.yaml、*.yml）
func (r *DeclarationRegistry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WrapError(err, fmt.Sprintf("reading declaration dir %s", dir))
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
