package catalogue_test

import (
	"math/rand"
	"testing"

	"github.com/okian/trophycase/internal/domain/catalogue"
	"github.com/okian/trophycase/internal/domain/feed"
	"github.com/okian/trophycase/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ach(id string, ts int64) model.Achievement {
	return model.Achievement{ID: id, ServiceConfigID: "scid", UnlockedTimestamp: ts}
}

func ids(achievements []model.Achievement) []string {
	out := make([]string, 0, len(achievements))
	for _, a := range achievements {
		out = append(out, a.ID)
	}
	return out
}

// fixedRand always draws the same index.
type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

func TestCounting(t *testing.T) {
	Convey("Given a mixed catalogue", t, func() {
		list := []model.Achievement{ach("A", 0), ach("B", 10), ach("C", 0), ach("D", 20), ach("E", 0)}

		Convey("Then locked plus unlocked equals the total", func() {
			So(catalogue.Count(list), ShouldEqual, 5)
			So(catalogue.CountLocked(list), ShouldEqual, 3)
			So(catalogue.CountUnlocked(list), ShouldEqual, 2)
			So(catalogue.CountLocked(list)+catalogue.CountUnlocked(list), ShouldEqual, catalogue.Count(list))
		})

		Convey("Then a nil catalogue counts as empty", func() {
			So(catalogue.Count(nil), ShouldEqual, 0)
			So(catalogue.CountLocked(nil), ShouldEqual, 0)
			So(catalogue.CountUnlocked(nil), ShouldEqual, 0)
		})
	})
}

func TestFindLatestUnlocked(t *testing.T) {
	Convey("Given catalogues with different unlock states", t, func() {
		Convey("When everything is locked", func() {
			list := []model.Achievement{ach("A", 0), ach("B", 0)}

			Convey("Then nothing is found", func() {
				So(catalogue.FindLatestUnlocked(list), ShouldBeNil)
				So(catalogue.FindLatestUnlocked(nil), ShouldBeNil)
			})
		})

		Convey("When the maximum is unique", func() {
			for pos := range 4 {
				list := []model.Achievement{ach("A", 5), ach("B", 0), ach("C", 7), ach("D", 3)}
				list[pos].UnlockedTimestamp = 100
				latest := catalogue.FindLatestUnlocked(list)

				So(latest, ShouldNotBeNil)
				So(latest.ID, ShouldEqual, list[pos].ID)
			}
		})

		Convey("When two entries share the maximum", func() {
			list := []model.Achievement{ach("A", 0), ach("B", 50), ach("C", 50)}

			Convey("Then the first one wins", func() {
				So(catalogue.FindLatestUnlocked(list).ID, ShouldEqual, "B")
			})
		})
	})
}

func TestRandomLocked(t *testing.T) {
	Convey("Given a catalogue with exactly one locked achievement", t, func() {
		list := []model.Achievement{ach("A", 1), ach("B", 0), ach("C", 2)}
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test seed

		Convey("Then every draw returns it", func() {
			for range 200 {
				So(catalogue.RandomLocked(list, rng).ID, ShouldEqual, "B")
			}
		})
	})

	Convey("Given a catalogue with no locked achievements", t, func() {
		list := []model.Achievement{ach("A", 1), ach("B", 2)}
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test seed

		Convey("Then every draw returns nothing", func() {
			for range 50 {
				So(catalogue.RandomLocked(list, rng), ShouldBeNil)
			}
			So(catalogue.RandomLocked(nil, rng), ShouldBeNil)
		})
	})

	Convey("Given several locked achievements", t, func() {
		list := []model.Achievement{ach("A", 0), ach("B", 9), ach("C", 0), ach("D", 0)}

		Convey("Then the drawn index counts locked entries only", func() {
			So(catalogue.RandomLocked(list, fixedRand(0)).ID, ShouldEqual, "A")
			So(catalogue.RandomLocked(list, fixedRand(1)).ID, ShouldEqual, "C")
			So(catalogue.RandomLocked(list, fixedRand(2)).ID, ShouldEqual, "D")
		})

		Convey("Then every locked entry is eventually drawn", func() {
			rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic test seed
			seen := map[string]bool{}
			for range 300 {
				seen[catalogue.RandomLocked(list, rng).ID] = true
			}
			So(seen, ShouldResemble, map[string]bool{"A": true, "C": true, "D": true})
		})
	})
}

func TestStableOrder(t *testing.T) {
	Convey("Given [A locked, B t=10, C locked, D t=20]", t, func() {
		list := []model.Achievement{ach("A", 0), ach("B", 10), ach("C", 0), ach("D", 20)}

		Convey("When ordering in place", func() {
			catalogue.StableOrder(list)

			Convey("Then the result is [D, B, A, C]", func() {
				So(ids(list), ShouldResemble, []string{"D", "B", "A", "C"})
			})
		})
	})

	Convey("Given only locked achievements", t, func() {
		list := []model.Achievement{ach("Z", 0), ach("Y", 0), ach("X", 0)}
		catalogue.StableOrder(list)

		Convey("Then the original order is kept", func() {
			So(ids(list), ShouldResemble, []string{"Z", "Y", "X"})
		})
	})

	Convey("Given equal unlock times", t, func() {
		list := []model.Achievement{ach("A", 5), ach("B", 0), ach("C", 5), ach("D", 9)}
		catalogue.StableOrder(list)

		Convey("Then ties keep their relative order", func() {
			So(ids(list), ShouldResemble, []string{"D", "A", "C", "B"})
		})
	})

	Convey("Given an empty sequence", t, func() {
		So(func() { catalogue.StableOrder(nil) }, ShouldNotPanic)
	})
}

func TestApplyProgress(t *testing.T) {
	Convey("Given a catalogue and progress deltas", t, func() {
		list := []model.Achievement{ach("A", 0), ach("B", 0)}
		list[0].ProgressState = "NotStarted"
		deltas := []model.AchievementProgress{
			{ServiceConfigID: "scid", ID: "A", ProgressState: "Achieved", UnlockedTimestamp: 42},
			{ServiceConfigID: "other", ID: "B", ProgressState: "Achieved", UnlockedTimestamp: 43},
			{ServiceConfigID: "scid", ID: "missing", ProgressState: "Achieved", UnlockedTimestamp: 44},
		}

		Convey("When applying them", func() {
			n := catalogue.ApplyProgress(list, deltas)

			Convey("Then only matching keys are patched", func() {
				So(n, ShouldEqual, 1)
				So(list[0].ProgressState, ShouldEqual, "Achieved")
				So(list[0].UnlockedTimestamp, ShouldEqual, 42)
				So(list[1].Unlocked(), ShouldBeFalse)
			})
		})

		Convey("When nothing is passed", func() {
			So(catalogue.ApplyProgress(nil, deltas), ShouldEqual, 0)
			So(catalogue.ApplyProgress(list, nil), ShouldEqual, 0)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given existing definitions", t, func() {
		existing := []model.Achievement{ach("A", 0), ach("B", 0)}

		Convey("When merging updated and new definitions", func() {
			updated := ach("B", 0)
			updated.Name = "renamed"
			incoming := []model.Achievement{ach("C", 3), updated}
			merged := catalogue.Merge(existing, incoming)
			incoming[1].Name = "mutated after merge"

			Convey("Then known keys are replaced in place and new ones appended", func() {
				So(ids(merged), ShouldResemble, []string{"A", "B", "C"})
				So(merged[1].Name, ShouldEqual, "renamed")
			})
		})

		Convey("When merging into nothing", func() {
			merged := catalogue.Merge(nil, existing)

			Convey("Then the incoming order is kept", func() {
				So(ids(merged), ShouldResemble, []string{"A", "B"})
			})
		})
	})
}

func TestNewGamerscore(t *testing.T) {
	Convey("Given a catalogue with rewards", t, func() {
		a := ach("A", 10)
		a.Rewards = []model.Reward{{Value: "15"}}
		b := ach("B", 0)
		b.Rewards = []model.Reward{{Value: "100"}}
		c := ach("C", 30)
		c.Rewards = []model.Reward{{Value: "5"}}
		list := []model.Achievement{a, b, c}

		Convey("When taking a snapshot", func() {
			g := catalogue.NewGamerscore(1000, list)
			list[2].Rewards[0].Value = "500"

			Convey("Then only unlocked entries count and the snapshot is independent", func() {
				So(ids(g.UnlockedAchievements), ShouldResemble, []string{"C", "A"})
				So(g.Total(), ShouldEqual, 1020)
			})
		})
	})
}

const parsedDoc = `{"serviceConfigId":"s","achievements":[
	{"id":"1","name":"One","isSecret":"true","progression":{"timeUnlocked":"2023-11-14T22:13:20Z"},
	 "mediaAssets":[{"url":"u1"}],"rewards":[{"type":"Gamerscore","value":"10"}]},
	{"id":"2","name":"Two","progression":{"timeUnlocked":"0001-01-01T00:00:00Z"},
	 "mediaAssets":[{"url":"u2"},{"url":"u3"}]}]}`

func TestParsedCopies(t *testing.T) {
	Convey("Given achievements parsed from the feed", t, func() {
		original := feed.ParseAchievements(parsedDoc)
		So(len(original), ShouldEqual, 2)

		Convey("When deep-copying them", func() {
			copied := model.CloneAchievements(original)
			So(copied, ShouldResemble, original)

			Convey("Then mutating the copy leaves the original intact", func() {
				copied[0].Rewards[0].Value = "999"
				copied[1].MediaAssets[1].URL = "changed"
				So(original[0].Rewards[0].Value, ShouldEqual, "10")
				So(original[1].MediaAssets[1].URL, ShouldEqual, "u3")
			})

			Convey("Then mutating the original leaves the copy intact", func() {
				original[0].MediaAssets[0].URL = "changed"
				So(copied[0].MediaAssets[0].URL, ShouldEqual, "u1")
			})

			Convey("Then releasing either snapshot is independent", func() {
				g1 := catalogue.NewGamerscore(0, original)
				g2 := g1.Clone()
				g1.Release()
				So(g2.Total(), ShouldEqual, 10)
				So(func() { g1.Release() }, ShouldNotPanic)
			})
		})
	})
}
