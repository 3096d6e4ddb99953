package modules

import (
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/eventbus"
	"github.com/annel0/modrt/internal/module"
	"github.com/annel0/modrt/internal/setting"
)

// IgnoreList запрещает атаки по именам из списка друзей.
// Слушает с наивысшим приоритетом, чтобы остальные модули увидели отмену.
type IgnoreList struct {
	module.Base

	friends *setting.Bool
	blocked int
}

func NewIgnoreList() *IgnoreList {
	m := &IgnoreList{
		Base: module.NewBase("IgnoreList", "Ignore friends from combat modules", module.Misc, event.KeyUnbound),
	}
	m.friends = module.AddSetting(&m.Base, setting.NewBool("Friends", "Ignore friends", true))
	return m
}

func (m *IgnoreList) Listeners() []eventbus.Binding {
	return []eventbus.Binding{
		eventbus.On(m.onAttack).WithPriority(event.Highest).Named("IgnoreList.onAttack"),
	}
}

// IsIgnored сообщает, защищено ли имя от атак.
func (m *IgnoreList) IsIgnored(name string) bool {
	if !m.Enabled() || !m.friends.Get() || name == "" {
		return false
	}
	env := m.Env()
	if env == nil || env.Names == nil {
		return false
	}
	return env.Names.Contains(name)
}

// Blocked - сколько атак отменено с момента включения.
func (m *IgnoreList) Blocked() int { return m.blocked }

func (m *IgnoreList) OnEnable() { m.blocked = 0 }

func (m *IgnoreList) onAttack(ev *event.AttackEntity) {
	if !m.IsIgnored(ev.TargetName) {
		return
	}
	ev.Cancel()
	m.blocked++
	m.Logger().Debug("Атака по %s отменена: цель в списке друзей", ev.TargetName)
}
