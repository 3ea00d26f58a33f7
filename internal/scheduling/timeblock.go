package scheduling

import (
	"sort"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockOffice BlockType = "OFFICE"
	BlockVisit  BlockType = "VISIT"
	BlockTravel BlockType = "TRAVEL_BUFFER"
)

// VisitPlacement is the payload attached to a VISIT block.
type VisitPlacement struct {
	RequirementID   uuid.UUID
	PatientID       uuid.UUID
	PatientName     string
	VisitType       AppointmentType
	DurationMinutes int
	Notes           *string
	Location        *string
	Priority        VisitPriority
}

type TimeBlock struct {
	Start TimeOfDay
	End   TimeOfDay
	Type  BlockType
	Visit *VisitPlacement
}

func (b TimeBlock) DurationMinutes() int {
	return int(b.End - b.Start)
}

// DaySchedule owns one staff member's blocks for a single date. Blocks are
// kept sorted by start time and pairwise non-overlapping; all mutation goes
// through this type so the invariant is enforced in one place.
type DaySchedule struct {
	blocks []TimeBlock
}

func NewDaySchedule() *DaySchedule {
	return &DaySchedule{}
}

// Blocks returns the blocks in start-time order. The returned slice is a
// copy; callers cannot break the invariant through it.
func (d *DaySchedule) Blocks() []TimeBlock {
	out := make([]TimeBlock, len(d.blocks))
	copy(out, d.blocks)
	return out
}

func (d *DaySchedule) insert(b TimeBlock) {
	d.blocks = append(d.blocks, b)
	sort.Slice(d.blocks, func(i, j int) bool { return d.blocks[i].Start < d.blocks[j].Start })
}

// AddOffice inserts an office block. Used for the daily skeleton and for
// leveling filler.
func (d *DaySchedule) AddOffice(start, end TimeOfDay) {
	if end <= start {
		return
	}
	d.insert(TimeBlock{Start: start, End: end, Type: BlockOffice})
}

func (d *DaySchedule) VisitCount() int {
	n := 0
	for _, b := range d.blocks {
		if b.Type == BlockVisit {
			n++
		}
	}
	return n
}

// WorkMinutes is the day's scheduled minutes excluding travel buffers.
func (d *DaySchedule) WorkMinutes() int {
	total := 0
	for _, b := range d.blocks {
		if b.Type != BlockTravel {
			total += b.DurationMinutes()
		}
	}
	return total
}

// VisitMinutes counts VISIT plus TRAVEL_BUFFER minutes. Office time is
// elastic and excluded from capacity checks.
func (d *DaySchedule) VisitMinutes() int {
	total := 0
	for _, b := range d.blocks {
		if b.Type == BlockVisit || b.Type == BlockTravel {
			total += b.DurationMinutes()
		}
	}
	return total
}

func (d *DaySchedule) OfficeMinutes() int {
	total := 0
	for _, b := range d.blocks {
		if b.Type == BlockOffice {
			total += b.DurationMinutes()
		}
	}
	return total
}

// FindVisitStart scans office blocks in start order and returns the first
// start time where a visit of totalNeeded minutes (duration plus travel
// buffer) fits, intersected with the preferred window when present.
// First fit wins; there is no search for a tighter fit.
func (d *DaySchedule) FindVisitStart(prefStart, prefEnd *TimeOfDay, totalNeeded int) (TimeOfDay, bool) {
	for _, b := range d.blocks {
		if b.Type != BlockOffice {
			continue
		}
		searchStart := b.Start
		searchEnd := b.End
		if prefStart != nil && *prefStart > searchStart {
			searchStart = *prefStart
		}
		if prefEnd != nil && *prefEnd < searchEnd {
			searchEnd = *prefEnd
		}
		if int(searchEnd-searchStart) < totalNeeded {
			continue
		}
		return searchStart, true
	}
	return 0, false
}

// PlaceVisit carves a visit out of the office block covering start, splitting
// it into before-fragment, visit, travel buffer (clipped to dayEnd) and
// after-fragment. Fragments shorter than minSplit are dropped.
func (d *DaySchedule) PlaceVisit(start TimeOfDay, v VisitPlacement, bufferMinutes int, dayEnd TimeOfDay, minSplit int) bool {
	visitEnd := start + TimeOfDay(v.DurationMinutes)
	bufferEnd := visitEnd + TimeOfDay(bufferMinutes)
	if bufferEnd > dayEnd {
		bufferEnd = dayEnd
	}

	idx := -1
	for i, b := range d.blocks {
		if b.Type == BlockOffice && b.Start <= start && b.End >= visitEnd {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	office := d.blocks[idx]
	d.blocks = append(d.blocks[:idx], d.blocks[idx+1:]...)

	if int(start-office.Start) >= minSplit {
		d.insert(TimeBlock{Start: office.Start, End: start, Type: BlockOffice})
	}

	placed := v
	d.insert(TimeBlock{Start: start, End: visitEnd, Type: BlockVisit, Visit: &placed})

	afterStart := visitEnd
	if bufferEnd > visitEnd {
		d.insert(TimeBlock{Start: visitEnd, End: bufferEnd, Type: BlockTravel})
		afterStart = bufferEnd
	}

	if afterStart < office.End && int(office.End-afterStart) >= minSplit {
		d.insert(TimeBlock{Start: afterStart, End: office.End, Type: BlockOffice})
	}
	return true
}

// TrimOffice truncates office blocks, latest first, until excess minutes are
// recovered or no trimmable office time remains. Remainders shorter than
// minSplit are dropped entirely. Returns the excess minutes accounted for.
func (d *DaySchedule) TrimOffice(excess, minSplit int) int {
	trimmed := 0
	for trimmed < excess {
		idx := -1
		for i := len(d.blocks) - 1; i >= 0; i-- {
			if d.blocks[i].Type == BlockOffice {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		office := d.blocks[idx]
		d.blocks = append(d.blocks[:idx], d.blocks[idx+1:]...)

		trimAmount := excess - trimmed
		if office.DurationMinutes() < trimAmount {
			trimAmount = office.DurationMinutes()
		}
		remaining := office.DurationMinutes() - trimAmount
		if remaining >= minSplit {
			d.insert(TimeBlock{Start: office.Start, End: office.Start + TimeOfDay(remaining), Type: BlockOffice})
		}
		trimmed += trimAmount
	}
	return trimmed
}

// Gaps returns the uncovered intervals between workStart and workEnd.
func (d *DaySchedule) Gaps(workStart, workEnd TimeOfDay) [][2]TimeOfDay {
	var gaps [][2]TimeOfDay
	cursor := workStart
	for _, b := range d.blocks {
		if cursor < b.Start {
			gaps = append(gaps, [2]TimeOfDay{cursor, b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < workEnd {
		gaps = append(gaps, [2]TimeOfDay{cursor, workEnd})
	}
	return gaps
}
