package driver

// Progress：输出进度回调；current 为已写入记录数
type Progress interface {
	Report(current, total int)
}

// ProgressFunc：函数适配
type ProgressFunc func(current, total int)

func (f ProgressFunc) Report(current, total int) { f(current, total) }

// Percent：百分比进度，total 为 0 时视为完成
func Percent(current, total int) float64 {
	if total <= 0 {
		return 100
	}
	return 100 * float64(current) / float64(total)
}
