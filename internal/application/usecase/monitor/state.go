package monitor

import (
	"strings"
	"time"

	"pumpradar/internal/domain"
	"pumpradar/internal/domain/service"
)

// State 所有交易对的状态，启动时一次性创建，之后只读 map
type State struct {
	order []string
	syms  map[string]*service.SymbolState
}

func NewState(symbols []string, capacity int) *State {
	order := make([]string, 0, len(symbols))
	syms := make(map[string]*service.SymbolState, len(symbols))
	for _, sym := range symbols {
		u := strings.ToUpper(strings.TrimSpace(sym))
		if u == "" {
			continue
		}
		if _, dup := syms[u]; dup {
			continue
		}
		order = append(order, u)
		syms[u] = service.NewSymbolState(u, capacity)
	}
	return &State{order: order, syms: syms}
}

func (s *State) Symbols() []string {
	return s.order
}

// Get 未知交易对返回 nil
func (s *State) Get(symbol string) *service.SymbolState {
	return s.syms[symbol]
}

// Apply 写入一条行情更新；未知交易对忽略
// 返回是否需要调度检测
func (s *State) Apply(u domain.Update, now time.Time) bool {
	st := s.syms[u.Symbol]
	if st == nil {
		return false
	}
	return st.Apply(u, now)
}
