package textvec

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Options TF-IDF 向量化参数
type Options struct {
	MaxFeatures int     // 词表上限，按语料总词频保留；<=0 不限
	MinDF       int     // 最少出现在多少篇文档中
	MaxDF       float64 // 出现文档比例超过该值的词被丢弃，(0,1]
	NgramMin    int
	NgramMax    int
}

// DefaultOptions 商品文本使用的默认参数
func DefaultOptions() Options {
	return Options{
		MaxFeatures: 1000,
		MinDF:       1,
		MaxDF:       0.95,
		NgramMin:    1,
		NgramMax:    2,
	}
}

// Model 已拟合的词表、IDF 以及文档矩阵（每行 L2 归一化）
type Model struct {
	opts   Options
	vocab  map[string]int
	terms  []string
	idf    []float64
	matrix *mat.Dense // nil 表示词表为空
	rows   int
}

// Fit 在文档集合上拟合词表并生成文档矩阵。
// 词表为空是合法的，此时所有相似度都是 0。
func Fit(docs []string, opts Options) *Model {
	if opts.NgramMax < opts.NgramMin || opts.NgramMax == 0 {
		opts.NgramMin, opts.NgramMax = 1, 1
	}
	if opts.MaxDF <= 0 || opts.MaxDF > 1 {
		opts.MaxDF = 1
	}

	grams := make([][]string, len(docs))
	df := make(map[string]int)
	tf := make(map[string]int)
	for i, doc := range docs {
		grams[i] = NGrams(Tokenize(doc), opts.NgramMin, opts.NgramMax)
		seen := make(map[string]struct{}, len(grams[i]))
		for _, g := range grams[i] {
			tf[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}

	n := len(docs)
	maxDocs := opts.MaxDF * float64(n)
	var terms []string
	for term, d := range df {
		if d < opts.MinDF || float64(d) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.SliceStable(terms, func(i, j int) bool { return tf[terms[i]] > tf[terms[j]] })
		terms = terms[:opts.MaxFeatures]
		sort.Strings(terms)
	}

	m := &Model{
		opts:  opts,
		vocab: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
		rows:  n,
	}
	for i, term := range terms {
		m.vocab[term] = i
		// 平滑 idf
		m.idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	if len(terms) == 0 || n == 0 {
		return m
	}
	m.matrix = mat.NewDense(n, len(terms), nil)
	for i, g := range grams {
		m.matrix.SetRow(i, m.weigh(g))
	}
	return m
}

// weigh 计算一组 n-gram 的 tf*idf 向量并做 L2 归一化
func (m *Model) weigh(grams []string) []float64 {
	row := make([]float64, len(m.terms))
	for _, g := range grams {
		if idx, ok := m.vocab[g]; ok {
			row[idx]++
		}
	}
	floats.Mul(row, m.idf)
	if norm := floats.Norm(row, 2); norm > 0 {
		floats.Scale(1/norm, row)
	}
	return row
}

// Rows 文档数量
func (m *Model) Rows() int { return m.rows }

// VocabularySize 词表大小
func (m *Model) VocabularySize() int { return len(m.terms) }

// Vocabulary 按字母序返回词表
func (m *Model) Vocabulary() []string {
	return append([]string(nil), m.terms...)
}

// IDF 返回词的 idf，不在词表中时 ok 为 false
func (m *Model) IDF(term string) (float64, bool) {
	idx, ok := m.vocab[term]
	if !ok {
		return 0, false
	}
	return m.idf[idx], true
}

// Transform 用已拟合的词表把任意文本转为归一化向量。
// 词表为空时返回 nil。
func (m *Model) Transform(text string) *mat.VecDense {
	if m.matrix == nil {
		return nil
	}
	grams := NGrams(Tokenize(text), m.opts.NgramMin, m.opts.NgramMax)
	return mat.NewVecDense(len(m.terms), m.weigh(grams))
}

// Similarities 计算向量与每个文档的余弦相似度（行已归一化，即点积）
func (m *Model) Similarities(v mat.Vector) []float64 {
	out := make([]float64, m.rows)
	if m.matrix == nil || v == nil {
		return out
	}
	var res mat.VecDense
	res.MulVec(m.matrix, v)
	for i := range out {
		out[i] = res.AtVec(i)
	}
	return out
}

// RowSimilarities 第 i 篇文档与所有文档的余弦相似度
func (m *Model) RowSimilarities(i int) []float64 {
	if m.matrix == nil {
		return make([]float64, m.rows)
	}
	return m.Similarities(m.matrix.RowView(i))
}

// Similarity 两篇文档之间的余弦相似度
func (m *Model) Similarity(i, j int) float64 {
	if m.matrix == nil {
		return 0
	}
	return mat.Dot(m.matrix.RowView(i), m.matrix.RowView(j))
}
