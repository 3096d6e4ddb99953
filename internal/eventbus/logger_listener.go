package eventbus

import (
	"github.com/annel0/modrt/internal/event"
	"github.com/annel0/modrt/internal/logging"
)

// StartLoggingListener подписывает на шину наблюдателя за переключениями
// модулей. Слушатель стоит последним и видит в том числе отменённые
// переключения. Возвращённый Subject можно снять через Unregister.
func StartLoggingListener(bus *Bus) Subject {
	log := logging.GetBusLogger()
	group := NewGroup("logging-listener",
		On(func(ev *event.ModuleToggle) {
			name := "<nil>"
			if ev.Module != nil {
				name = ev.Module.Name()
			}
			state := "выключение"
			if ev.Enabled {
				state = "включение"
			}
			if ev.Cancelled() {
				log.Debug("[EventBus] %s модуля %s отменено", state, name)
				return
			}
			log.Debug("[EventBus] %s модуля %s", state, name)
		}).WithPriority(event.Lowest).ReceiveCancelled(),
	)
	bus.Register(group)
	log.Info("🪵 LoggingListener: подписка на переключения модулей активирована")
	return group
}
