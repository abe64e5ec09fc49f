package service

import (
	"sort"
	"strings"
	"time"

	"village-portal/internal/model"
)

const unknownLabel = "Unknown"

var ageGroups = []struct {
	label string
	max   int
}{
	{"0-17", 17},
	{"18-25", 25},
	{"26-35", 35},
	{"36-45", 45},
	{"46-55", 55},
	{"56-65", 65},
	{"65+", -1},
}

// BuildStatistics counts records by category with a male/female split.
// Category groups are sorted by label; age groups keep their natural order.
// Genders other than the two known values count toward totals only.
func BuildStatistics(records []model.StatisticsRecord, now time.Time) model.DemographicStatistics {
	education := newCounter()
	job := newCounter()
	religion := newCounter()
	marital := newCounter()
	rt := newCounter()
	rw := newCounter()
	hamlet := newCounter()

	ages := make([]model.GroupCount, len(ageGroups))
	for i, g := range ageGroups {
		ages[i].Label = g.label
	}

	var total model.GenderBreakdown
	for _, r := range records {
		gender := strings.ToLower(strings.TrimSpace(r.Gender))

		total.Add(gender)
		education.add(r.Education, gender)
		job.add(r.Job, gender)
		religion.add(r.Religion, gender)
		marital.add(r.MaritalStatus, gender)
		rt.add(r.RT, gender)
		rw.add(r.RW, gender)
		hamlet.add(r.Hamlet, gender)

		ages[ageGroupIndex(AgeAt(r.BirthDate, now))].Add(gender)
	}

	return model.DemographicStatistics{
		Total:         total,
		Education:     education.groups(),
		Job:           job.groups(),
		Religion:      religion.groups(),
		MaritalStatus: marital.groups(),
		AgeGroups:     ages,
		RT:            rt.groups(),
		RW:            rw.groups(),
		Hamlet:        hamlet.groups(),
	}
}

// AgeAt returns completed years between birth and now. Birth dates in the
// future give 0.
func AgeAt(birth time.Time, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()

	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	return max(age, 0)
}

func ageGroupIndex(age int) int {
	for i, g := range ageGroups {
		if g.max >= 0 && age <= g.max {
			return i
		}
	}
	return len(ageGroups) - 1
}

type counter map[string]*model.GroupCount

func newCounter() counter {
	return counter{}
}

func (c counter) add(label string, gender string) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = unknownLabel
	}
	g, ok := c[label]
	if !ok {
		g = &model.GroupCount{Label: label}
		c[label] = g
	}
	g.Add(gender)
}

func (c counter) groups() []model.GroupCount {
	out := make([]model.GroupCount, 0, len(c))
	for _, g := range c {
		out = append(out, *g)
	}
	sort.Slice(out, func(i int, j int) bool {
		return out[i].Label < out[j].Label
	})
	return out
}
