package metrics

import "sync/atomic"

var (
	linesRead     int64
	parseErrors   int64
	reconnects    int64
	decisions     int64
	blocksWritten int64
	notifyErrors  int64
)

func IncLinesRead()     { atomic.AddInt64(&linesRead, 1) }
func IncParseErrors()   { atomic.AddInt64(&parseErrors, 1) }
func IncReconnects()    { atomic.AddInt64(&reconnects, 1) }
func IncDecisions()     { atomic.AddInt64(&decisions, 1) }
func IncBlocksWritten() { atomic.AddInt64(&blocksWritten, 1) }
func IncNotifyErrors()  { atomic.AddInt64(&notifyErrors, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"lines_read":     atomic.LoadInt64(&linesRead),
		"parse_errors":   atomic.LoadInt64(&parseErrors),
		"reconnects":     atomic.LoadInt64(&reconnects),
		"decisions":      atomic.LoadInt64(&decisions),
		"blocks_written": atomic.LoadInt64(&blocksWritten),
		"notify_errors":  atomic.LoadInt64(&notifyErrors),
	}
}
