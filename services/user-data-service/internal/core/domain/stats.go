package domain

import (
	"sort"
	"time"
)

// StreakResult : jours consécutifs de lecture.
type StreakResult struct {
	Current int
	Longest int
}

// CalculateStreaks calcule le streak courant et le plus long historique.
//
// Streak courant : on remonte jour par jour depuis aujourd'hui. Une session
// d'hier compte encore comme "courant" si rien n'est loggé aujourd'hui
// (tolérance d'un jour au départ seulement), ensuite aucun trou n'est permis.
//
// Streak le plus long : plus longue suite de dates calendaires strictement
// consécutives sur tout l'historique.
//
// dates peut contenir des doublons et être dans n'importe quel ordre.
func CalculateStreaks(dates []time.Time, today time.Time) StreakResult {
	if len(dates) == 0 {
		return StreakResult{}
	}

	days := distinctDaysDesc(dates)
	today = truncateDay(today)

	// --- Streak courant ---
	current := 0
	cursor := today
	if !days[0].Equal(today) {
		// Tolérance : une session d'hier maintient le streak
		yesterday := today.AddDate(0, 0, -1)
		if days[0].Equal(yesterday) {
			cursor = yesterday
		} else {
			cursor = time.Time{} // streak cassé
		}
	}

	if !cursor.IsZero() {
		for _, d := range days {
			if d.Equal(cursor) {
				current++
				cursor = cursor.AddDate(0, 0, -1)
			} else if d.Before(cursor) {
				break
			}
		}
	}

	// --- Streak le plus long ---
	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}

	// Un streak courant encore en cours peut dépasser l'historique scanné
	if current > longest {
		longest = current
	}

	return StreakResult{Current: current, Longest: longest}
}

// ActiveDates filtre les jours de lecture des 365 derniers jours (pour la heatmap).
func ActiveDates(dates []time.Time, today time.Time) []time.Time {
	cutoff := truncateDay(today).AddDate(0, 0, -365)

	days := distinctDaysDesc(dates)
	var active []time.Time
	for _, d := range days {
		if !d.Before(cutoff) {
			active = append(active, d)
		}
	}
	return active
}

// CompletionRate = read / (read + dnf + currentlyReading) * 100.
// Retourne 0 quand rien n'a été commencé.
func CompletionRate(read, dnf, currentlyReading int) float64 {
	total := read + dnf + currentlyReading
	if total == 0 {
		return 0
	}
	return float64(read) * 100 / float64(total)
}

// MethodStats : agrégats par support de lecture.
type MethodStats struct {
	Method       ReadingMethod
	BooksTouched int
	PagesRead    int
	MinutesRead  int
	Sessions     int
	Percentage   float64
}

// ComputePercentages remplit la part de chaque méthode dans le total des sessions.
func ComputePercentages(stats []MethodStats) []MethodStats {
	total := 0
	for _, s := range stats {
		total += s.Sessions
	}
	if total == 0 {
		return stats
	}
	for i := range stats {
		stats[i].Percentage = float64(stats[i].Sessions) * 100 / float64(total)
	}
	return stats
}

// PreferredMethod : méthode la plus fréquente parmi les dernières sessions.
// À égalité de compte, l'ordre alphabétique tranche (AUDIOBOOK < EBOOK < PHYSICAL),
// de sorte que le résultat ne dépend jamais de l'ordre des lignes SQL.
func PreferredMethod(recentMethods []ReadingMethod) ReadingMethod {
	if len(recentMethods) == 0 {
		return ""
	}

	counts := make(map[ReadingMethod]int)
	for _, m := range recentMethods {
		counts[m]++
	}

	methods := make([]ReadingMethod, 0, len(counts))
	for m := range counts {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		if counts[methods[i]] != counts[methods[j]] {
			return counts[methods[i]] > counts[methods[j]]
		}
		return methods[i] < methods[j]
	})

	return methods[0]
}

// TimeBucket : un point de la série temporelle (semaine ISO ou mois).
type TimeBucket struct {
	Period   time.Time
	Pages    int
	Minutes  int
	Sessions int
}

// LeaderboardEntry : une ligne du classement genres/auteurs.
type LeaderboardEntry struct {
	ID        int64
	Name      string
	BooksRead int
}

// SortLeaderboard trie par livres lus décroissant (nom croissant à égalité)
// et tronque à top-N.
func SortLeaderboard(entries []LeaderboardEntry, topN int) []LeaderboardEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].BooksRead != entries[j].BooksRead {
			return entries[i].BooksRead > entries[j].BooksRead
		}
		return entries[i].Name < entries[j].Name
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

// --- Helpers ---

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// distinctDaysDesc normalise en jours UTC, dédoublonne et trie décroissant.
func distinctDaysDesc(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, t := range dates {
		d := truncateDay(t)
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}
