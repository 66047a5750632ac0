package feature

// 文档注释：一个输入快照（图层）
// 背景：由适配层构建；Kind 为检测到的声明维度，Fields 为属性模式（首次出现顺序）。
// 约束：空图层 Kind 为 KindUnknown，混合维度为 KindMixed。
type Collection struct {
	Name    string
	Kind    Kind
	Fields  []string
	Records []Record
}

// HasField：模式中是否包含字段
func (c *Collection) HasField(name string) bool {
	for _, f := range c.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Len：记录数
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// DetectKind：取所有非空几何的公共维度
func DetectKind(records []Record) Kind {
	k := KindUnknown
	for _, r := range records {
		if r.Geometry == nil || r.Geometry.IsNull() {
			continue
		}
		rk := KindOf(r.Geometry.Orb())
		if rk == KindUnknown {
			return KindMixed
		}
		if k == KindUnknown {
			k = rk
			continue
		}
		if rk != k {
			return KindMixed
		}
	}
	return k
}
