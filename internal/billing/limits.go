// AngelaMos | 2026
// limits.go

package billing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

type LimitKey string

const (
	LimitMaxTasks                    LimitKey = "maxTasks"
	LimitMaxWorkspaces               LimitKey = "maxWorkspaces"
	LimitMaxFriends                  LimitKey = "maxFriends"
	LimitMaxNudgesPerDay             LimitKey = "maxNudgesPerDay"
	LimitJarvisConversationsPerMonth LimitKey = "jarvisConversationsPerMonth"
	LimitJarvisTokensPerMonth        LimitKey = "jarvisTokensPerMonth"
	LimitConversationHistoryDays     LimitKey = "conversationHistoryDays"
	LimitMaxFileSize                 LimitKey = "maxFileSize"
)

// AllLimitKeys is the closed set of keys a plan may define.
var AllLimitKeys = []LimitKey{
	LimitMaxTasks,
	LimitMaxWorkspaces,
	LimitMaxFriends,
	LimitMaxNudgesPerDay,
	LimitJarvisConversationsPerMonth,
	LimitJarvisTokensPerMonth,
	LimitConversationHistoryDays,
	LimitMaxFileSize,
}

func (k LimitKey) Valid() bool {
	for _, known := range AllLimitKeys {
		if k == known {
			return true
		}
	}
	return false
}

// unlimitedSentinel is how Unlimited is stored in plan json.
const unlimitedSentinel int64 = -1

// Limit is either Unlimited or Bounded(n) with n >= 0. The zero value is
// Bounded(0).
type Limit struct {
	unlimited bool
	n         int64
}

func Unlimited() Limit {
	return Limit{unlimited: true}
}

func Bounded(n int64) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n}
}

func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Max returns the bound and false for Unlimited.
func (l Limit) Max() (int64, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Allows reports whether one more unit fits after current. Reaching the
// bound exactly blocks the next action.
func (l Limit) Allows(current int64) bool {
	if l.unlimited {
		return true
	}
	return current < l.n
}

// Raw is the wire form, -1 for Unlimited.
func (l Limit) Raw() int64 {
	if l.unlimited {
		return unlimitedSentinel
	}
	return l.n
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(l.n, 10)
}

func limitFromRaw(v int64) (Limit, error) {
	switch {
	case v == unlimitedSentinel:
		return Unlimited(), nil
	case v < 0:
		return Limit{}, fmt.Errorf("invalid limit value %d", v)
	default:
		return Bounded(v), nil
	}
}

func (l Limit) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(l.Raw(), 10)), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode limit: %w", err)
	}

	parsed, err := limitFromRaw(v)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Limits maps each key to its limit. A key that is absent resolves to
// Bounded(0) so an incomplete plan denies instead of granting.
type Limits map[LimitKey]Limit

func (ls Limits) Get(key LimitKey) Limit {
	if l, ok := ls[key]; ok {
		return l
	}
	return Bounded(0)
}

// Raw renders the plan limits with the -1 sentinel for API responses.
func (ls Limits) Raw() map[LimitKey]int64 {
	out := make(map[LimitKey]int64, len(ls))
	for k, l := range ls {
		out[k] = l.Raw()
	}
	return out
}

func (ls *Limits) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*ls = Limits{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan limits: unsupported type %T", src)
	}

	parsed := Limits{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("scan limits: %w", err)
	}
	*ls = parsed
	return nil
}

func (ls Limits) Value() (driver.Value, error) {
	if ls == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ls)
	if err != nil {
		return nil, fmt.Errorf("encode limits: %w", err)
	}
	return data, nil
}
