// 包 index：按标识建立记录索引；保留输入顺序以保证后续匹配的确定性
package index

import "geo-compare/internal/feature"

type entry struct {
	rec feature.Record
	pos int
}

// 文档注释：标识到记录的映射
// 背景：每个输入快照构建一次，之后只读；顺序为标识首次出现的位置，用于首个匹配（first-fit）的迭代次序。
// 约束：空标识计数后跳过；重复标识后写覆盖前写（last-write-wins），位置保持首次出现处，重复标识单独列出供诊断。
type Index struct {
	byID       map[feature.ID]*entry
	order      []feature.ID
	Skipped    int
	Duplicates []feature.ID
}

// Build：按输入顺序建立索引；不做几何校验
func Build(records []feature.Record) *Index {
	ix := &Index{byID: make(map[feature.ID]*entry, len(records))}
	seenDup := make(map[feature.ID]bool)
	for _, r := range records {
		if feature.IsNullID(r.ID) {
			ix.Skipped++
			continue
		}
		if e, ok := ix.byID[r.ID]; ok {
			e.rec = r
			if !seenDup[r.ID] {
				seenDup[r.ID] = true
				ix.Duplicates = append(ix.Duplicates, r.ID)
			}
			continue
		}
		ix.byID[r.ID] = &entry{rec: r, pos: len(ix.order)}
		ix.order = append(ix.order, r.ID)
	}
	return ix
}

// Get：按标识取记录
func (ix *Index) Get(id feature.ID) (feature.Record, bool) {
	e, ok := ix.byID[id]
	if !ok {
		return feature.Record{}, false
	}
	return e.rec, true
}

// Has：是否包含标识
func (ix *Index) Has(id feature.ID) bool {
	_, ok := ix.byID[id]
	return ok
}

// Position：标识在迭代顺序中的位置；不存在返回 -1
func (ix *Index) Position(id feature.ID) int {
	if e, ok := ix.byID[id]; ok {
		return e.pos
	}
	return -1
}

// IDs：按首次出现顺序返回全部标识（副本）
func (ix *Index) IDs() []feature.ID {
	return append([]feature.ID(nil), ix.order...)
}

func (ix *Index) Len() int { return len(ix.order) }
