package preferences

import (
	"sort"
	"time"
)

// DailyStat aggregates one day of listening
type DailyStat struct {
	Date          string  `json:"date"`
	SongCount     int     `json:"songCount"`
	ListenMinutes float64 `json:"listenMinutes"`
	LikeCount     int     `json:"likeCount"`
	SkipCount     int     `json:"skipCount"`
}

// DailyStats returns per-day aggregates for the last `days` days, oldest
// first, with empty days filled in.
func DailyStats(store *Store, days int) ([]DailyStat, error) {
	logs, err := store.RecentSongLogs(500)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	byDate := make(map[string]*DailyStat)

	for _, l := range logs {
		if l.StartTime.Before(cutoff) {
			continue
		}
		date := l.StartTime.Format("2006-01-02")
		stat, ok := byDate[date]
		if !ok {
			stat = &DailyStat{Date: date}
			byDate[date] = stat
		}
		stat.SongCount++
		stat.ListenMinutes += l.ListenDuration / 60
		if l.ExplicitFeedback == FeedbackLike {
			stat.LikeCount++
		}
		if l.Skipped {
			stat.SkipCount++
		}
	}

	result := make([]DailyStat, 0, days)
	now := time.Now()
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		if stat, ok := byDate[date]; ok {
			result = append(result, *stat)
		} else {
			result = append(result, DailyStat{Date: date})
		}
	}
	return result, nil
}

// ParamPopularity counts how often an arm was played and liked
type ParamPopularity struct {
	Param     string  `json:"param"`
	Arm       string  `json:"arm"`
	Count     int     `json:"count"`
	LikeRatio float64 `json:"likeRatio"`
}

// ParamPopularityStats tallies arm usage over recent song logs, most
// played first.
func ParamPopularityStats(store *Store) ([]ParamPopularity, error) {
	logs, err := store.RecentSongLogs(500)
	if err != nil {
		return nil, err
	}

	type tally struct {
		count int
		likes int
	}
	counts := make(map[string]*tally)

	bump := func(param, arm string, liked bool) {
		key := param + ":" + arm
		t, ok := counts[key]
		if !ok {
			t = &tally{}
			counts[key] = t
		}
		t.count++
		if liked {
			t.likes++
		}
	}

	for _, l := range logs {
		liked := l.ExplicitFeedback == FeedbackLike
		bump("tempo", string(l.Params.Tempo), liked)
		bump("energy", string(l.Params.Energy), liked)
		bump("valence", string(l.Params.Valence), liked)
		bump("danceability", string(l.Params.Danceability), liked)
		bump("mode", string(l.Params.Mode), liked)
	}

	result := make([]ParamPopularity, 0, len(counts))
	for key, t := range counts {
		var param, arm string
		for i := 0; i < len(key); i++ {
			if key[i] == ':' {
				param, arm = key[:i], key[i+1:]
				break
			}
		}
		result = append(result, ParamPopularity{
			Param:     param,
			Arm:       arm,
			Count:     t.count,
			LikeRatio: float64(t.likes) / float64(t.count),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Param+result[i].Arm < result[j].Param+result[j].Arm
	})
	return result, nil
}
