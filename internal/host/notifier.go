package host

import (
	"usedplus-economy/internal/domain"

	"github.com/rs/zerolog/log"
)

const maxQueued = 50

// LogNotifier logs every notice and queues it per farm until drained.
type LogNotifier struct {
	notices map[int][]domain.Notice
	dialogs map[int][]domain.Dialog
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{
		notices: make(map[int][]domain.Notice),
		dialogs: make(map[int][]domain.Dialog),
	}
}

func (n *LogNotifier) Notify(notice domain.Notice) {
	log.Info().Int("farm_id", notice.FarmID).Str("kind", string(notice.Kind)).Msg(notice.Text)
	n.notices[notice.FarmID] = trim(append(n.notices[notice.FarmID], notice))
}

func (n *LogNotifier) ShowDialog(d domain.Dialog) {
	log.Info().Int("farm_id", d.FarmID).Str("dialog", string(d.Kind)).Int64("search_id", d.SearchID).Msg(d.Title)
	n.dialogs[d.FarmID] = trim(append(n.dialogs[d.FarmID], d))
}

// Drain returns and forgets everything queued for a farm.
func (n *LogNotifier) Drain(farmID int) ([]domain.Notice, []domain.Dialog) {
	notices, dialogs := n.notices[farmID], n.dialogs[farmID]
	delete(n.notices, farmID)
	delete(n.dialogs, farmID)
	return notices, dialogs
}

func trim[T any](s []T) []T {
	if len(s) > maxQueued {
		return s[len(s)-maxQueued:]
	}
	return s
}
