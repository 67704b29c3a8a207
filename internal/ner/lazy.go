package ner

import (
	"sync"
	"sync/atomic"

	"resume-ner-go/internal/types"
)

// Lazy 在第一次调用时才构建底层识别器。并发的首次调用只会触发一次加载，
// 加载结果（包括错误）此后一直复用。
type Lazy struct {
	load func() (Recognizer, error)

	once   sync.Once
	loaded atomic.Bool
	rec    Recognizer
	err    error
}

var _ Recognizer = (*Lazy)(nil)

// NewLazy 用给定的加载函数创建惰性识别器
func NewLazy(load func() (Recognizer, error)) *Lazy {
	return &Lazy{load: load}
}

func (l *Lazy) get() (Recognizer, error) {
	l.once.Do(func() {
		l.rec, l.err = l.load()
		l.loaded.Store(true)
	})
	return l.rec, l.err
}

// Loaded 是否已经完成加载
func (l *Lazy) Loaded() bool {
	return l.loaded.Load()
}

func (l *Lazy) People(text string) ([]string, error) {
	rec, err := l.get()
	if err != nil {
		return nil, err
	}
	return rec.People(text)
}

func (l *Lazy) Organizations(text string) ([]string, error) {
	rec, err := l.get()
	if err != nil {
		return nil, err
	}
	return rec.Organizations(text)
}

func (l *Lazy) Dates(text string) ([]types.DateExpression, error) {
	rec, err := l.get()
	if err != nil {
		return nil, err
	}
	return rec.Dates(text)
}

var (
	defaultRecognizer *Lazy
	defaultMutex      sync.Mutex
)

// Default 返回进程级识别器。lexiconPath 只在第一次调用时生效，为空时使用内置词典。
func Default(lexiconPath string) *Lazy {
	defaultMutex.Lock()
	defer defaultMutex.Unlock()

	if defaultRecognizer == nil {
		defaultRecognizer = NewLazy(func() (Recognizer, error) {
			lex, err := LoadLexicon(lexiconPath)
			if err != nil {
				return nil, err
			}
			return NewLexiconRecognizer(lex)
		})
	}
	return defaultRecognizer
}

// ResetDefault 重置进程级识别器（主要用于测试）
func ResetDefault() {
	defaultMutex.Lock()
	defer defaultMutex.Unlock()
	defaultRecognizer = nil
}
