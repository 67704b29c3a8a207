package ner

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var builtinLexicon []byte

// ErrEmptyLexicon 词典缺少必要的条目
var ErrEmptyLexicon = errors.New("ner: lexicon has no organization suffixes")

// Lexicon 识别器使用的词典
type Lexicon struct {
	FirstNames         []string `yaml:"first_names"`
	OrgSuffixes        []string `yaml:"org_suffixes"`
	InstitutionHeads   []string `yaml:"institution_heads"`
	KnownOrganizations []string `yaml:"known_organizations"`
	StopWords          []string `yaml:"stop_words"`
}

// BuiltinLexicon 解析内置词典
func BuiltinLexicon() (*Lexicon, error) {
	return ParseLexicon(builtinLexicon)
}

// LoadLexicon 从文件读取词典；path 为空时使用内置词典
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return BuiltinLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ner: read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon 解析 YAML 词典并做基本校验
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("ner: parse lexicon: %w", err)
	}
	lex.OrgSuffixes = cleanList(lex.OrgSuffixes)
	if len(lex.OrgSuffixes) == 0 {
		return nil, ErrEmptyLexicon
	}
	lex.FirstNames = cleanList(lex.FirstNames)
	lex.InstitutionHeads = cleanList(lex.InstitutionHeads)
	lex.KnownOrganizations = cleanList(lex.KnownOrganizations)
	lex.StopWords = cleanList(lex.StopWords)
	return &lex, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerSet(items ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range items {
		for _, s := range list {
			set[strings.ToLower(s)] = struct{}{}
		}
	}
	return set
}
