// 包 report：分类结果汇总（新增/删除/修改三个分区、救援配对与诊断计数）
package report

import (
	"fmt"

	"geo-compare/internal/feature"
)

// Side：记录来源
type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

// Reason：跳过原因
type Reason string

const (
	ReasonNullGeometry    Reason = "null_geometry"
	ReasonInvalidGeometry Reason = "invalid_geometry"
)

// Bucket：跳过发生的分类阶段
type Bucket string

const (
	BucketCommon  Bucket = "common"
	BucketAdded   Bucket = "added"
	BucketDeleted Bucket = "deleted"
)

// Skip：单条跳过诊断
type Skip struct {
	ID     feature.ID
	Side   Side
	Bucket Bucket
	Reason Reason
}

// Pair：几何救援配对（旧标识 → 新标识）
type Pair struct {
	OldID feature.ID
	NewID feature.ID
}

// 文档注释：诊断计数
// 背景：跳过不影响主流程，仅累计上报；InvalidXxx 按分类阶段拆分，SkippedInvalidGeometry 为合计。
type Diagnostics struct {
	SkippedNullIDOld       int `json:"skipped_null_id_old"`
	SkippedNullIDNew       int `json:"skipped_null_id_new"`
	SkippedInvalidGeometry int `json:"skipped_invalid_geometry"`
	InvalidCommon          int `json:"invalid_common"`
	InvalidAdded           int `json:"invalid_added"`
	InvalidDeleted         int `json:"invalid_deleted"`
	DuplicateIDsOld        int `json:"duplicate_ids_old"`
	DuplicateIDsNew        int `json:"duplicate_ids_new"`
	Rescued                int `json:"rescued"`
	Unchanged              int `json:"unchanged"`
}

// 文档注释：分类报告
// 背景：三个分区互不相交，仅包含可输出（几何非空且有效）的记录标识；顺序确定。
// 约束：Added/Modified 的标识指向新快照，Deleted 指向旧快照。
type Report struct {
	Kind        feature.Kind
	Added       []feature.ID
	Deleted     []feature.ID
	Modified    []feature.ID
	Rescued     []Pair
	Skips       []Skip
	Diagnostics Diagnostics
}

// New：空报告
func New(kind feature.Kind) *Report {
	return &Report{Kind: kind}
}

// AddSkip：记录一条跳过诊断并更新计数
func (r *Report) AddSkip(s Skip) {
	r.Skips = append(r.Skips, s)
	r.Diagnostics.SkippedInvalidGeometry++
	switch s.Bucket {
	case BucketCommon:
		r.Diagnostics.InvalidCommon++
	case BucketAdded:
		r.Diagnostics.InvalidAdded++
	case BucketDeleted:
		r.Diagnostics.InvalidDeleted++
	}
}

// AddRescue：记录一条救援配对
func (r *Report) AddRescue(oldID, newID feature.ID) {
	r.Rescued = append(r.Rescued, Pair{OldID: oldID, NewID: newID})
	r.Diagnostics.Rescued++
}

// Total：待输出记录总数（进度分母）
func (r *Report) Total() int {
	return len(r.Added) + len(r.Deleted) + len(r.Modified)
}

// Empty：无任何差异
func (r *Report) Empty() bool { return r.Total() == 0 }

// Summary：单行摘要
func (r *Report) Summary() string {
	return fmt.Sprintf("Found %d added IDs, %d deleted IDs, %d modified IDs.", len(r.Added), len(r.Deleted), len(r.Modified))
}

// Contains：标识是否位于某分区
func Contains(ids []feature.ID, id feature.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
