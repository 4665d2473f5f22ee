package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/gdamore/tcell/v2"

	"rideengine/ride"
)

// wheelStep is the delta one mouse notch or arrow press sends, matching a
// browser's default line scroll.
const wheelStep = 100

var (
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleTrack  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWaypt  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleRig    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTarget = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBar    = tcell.StyleDefault.Foreground(tcell.ColorAqua)
)

// viewer draws the engine state and maps terminal input to engine calls.
type viewer struct {
	screen tcell.Screen
	engine *ride.Engine

	// Points of interest ordered by waypoint index, bound to keys 1..n.
	poi []string
}

func newViewer(screen tcell.Screen, engine *ride.Engine) *viewer {
	pois := engine.PointsOfInterest()
	ids := make([]string, 0, len(pois))
	for id := range pois {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if pois[ids[i]] != pois[ids[j]] {
			return pois[ids[i]] < pois[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return &viewer{screen: screen, engine: engine, poi: ids}
}

// handleEvent applies one terminal event. It returns false when the viewer
// should quit.
func (v *viewer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyDown:
			v.engine.OnWheel(wheelStep)
		case tcell.KeyUp:
			v.engine.OnWheel(-wheelStep)
		case tcell.KeyPgDn:
			v.engine.OnWheel(4 * wheelStep)
		case tcell.KeyPgUp:
			v.engine.OnWheel(-4 * wheelStep)
		case tcell.KeyRune:
			return v.handleRune(ev.Rune())
		}

	case *tcell.EventMouse:
		btn := ev.Buttons()
		if btn&tcell.WheelDown != 0 {
			v.engine.OnWheel(wheelStep)
		}
		if btn&tcell.WheelUp != 0 {
			v.engine.OnWheel(-wheelStep)
		}

	case *tcell.EventResize:
		v.screen.Sync()
	}

	return true
}

func (v *viewer) handleRune(r rune) bool {
	switch {
	case r == 'q':
		return false
	case r == 'm':
		v.engine.SetMuted(!v.engine.Snapshot().Muted)
	case r == 'i':
		v.engine.ReturnToIdle()
	case r == 'j':
		v.engine.OnWheel(wheelStep)
	case r == 'k':
		v.engine.OnWheel(-wheelStep)
	case r >= '1' && r <= '9':
		n := int(r - '1')
		if n < len(v.poi) {
			v.engine.SelectPointOfInterest(v.poi[n])
		}
	}
	return true
}

// trackColumn maps a ride position onto a track drawn between columns left
// and right. Waypoints run from the first (left) to the last (right).
func trackColumn(z float64, waypoints []float64, left, right int) int {
	if len(waypoints) < 2 || right <= left {
		return left
	}
	first, last := waypoints[0], waypoints[len(waypoints)-1]
	span := last - first
	if span == 0 {
		return left
	}
	f := (z - first) / span
	f = math.Max(0, math.Min(1, f))
	return left + int(math.Round(f*float64(right-left)))
}

// statusLine is the one-line summary at the top of the screen.
func statusLine(s ride.Snapshot) string {
	target := "-"
	if s.CurrentTargetIdx != nil {
		target = fmt.Sprint(*s.CurrentTargetIdx)
	}
	return fmt.Sprintf("%-9s progress %.3f  z %7.2f  speed %.2f  boost %.2f  target %s  muted %t",
		s.Phase, s.Progress, s.Position, s.Speed, s.SpeedBoost, target, s.Muted)
}

func cameraLine(p ride.CameraPose, locked bool) string {
	return fmt.Sprintf("camera pos (%.2f, %.2f, %.2f)  look (%.2f, %.2f, %.2f)  fov %.1f  locked %t",
		p.Position.X, p.Position.Y, p.Position.Z,
		p.LookAt.X, p.LookAt.Y, p.LookAt.Z, p.FOV, locked)
}

func (v *viewer) drawText(x, y int, style tcell.Style, text string) {
	w, _ := v.screen.Size()
	for _, r := range text {
		if x >= w {
			return
		}
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *viewer) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	if w < 20 || h < 10 {
		v.drawText(0, 0, styleTitle, "terminal too small")
		v.screen.Show()
		return
	}

	snap := v.engine.Snapshot()
	waypoints := v.engine.Waypoints()
	pois := v.engine.PointsOfInterest()

	v.drawText(0, 0, styleTitle, statusLine(snap))

	// Track with waypoint markers and labels.
	left, right := 2, w-3
	const trackY = 3
	for x := left; x <= right; x++ {
		v.screen.SetContent(x, trackY, '─', nil, styleTrack)
	}

	labels := make(map[int]string, len(pois))
	for id, idx := range pois {
		if prev, ok := labels[idx]; !ok || id < prev {
			labels[idx] = id
		}
	}

	for i, z := range waypoints {
		x := trackColumn(z, waypoints, left, right)
		style := styleWaypt
		if snap.CurrentTargetIdx != nil && *snap.CurrentTargetIdx == i {
			style = styleTarget
		}
		v.screen.SetContent(x, trackY, '◆', nil, style)
		v.drawText(x, trackY+1, styleDim, fmt.Sprint(i))
		if id, ok := labels[i]; ok {
			// Stagger labels so neighbours don't overwrite each other.
			v.drawText(max(0, x-len(id)/2), trackY+2+i%2, style, id)
		}
	}

	rig := trackColumn(snap.Position, waypoints, left, right)
	v.screen.SetContent(rig, trackY-1, '▼', nil, styleRig)

	// Progress bar.
	const barY = 7
	barW := right - left
	filled := int(math.Round(snap.Progress * float64(barW)))
	for x := 0; x < barW; x++ {
		r := '░'
		if x < filled {
			r = '█'
		}
		v.screen.SetContent(left+x, barY, r, nil, styleBar)
	}

	v.drawText(0, barY+2, styleDim, cameraLine(snap.Camera, v.engine.CameraLocked()))
	if snap.ActivePlanet != "" {
		v.drawText(0, barY+3, styleTarget, "planet "+snap.ActivePlanet)
	}

	v.drawText(0, h-1, styleDim, v.helpLine())
	v.screen.Show()
}

func (v *viewer) helpLine() string {
	keys := ""
	for i, id := range v.poi {
		if i >= 9 {
			break
		}
		keys += fmt.Sprintf(" %d:%s", i+1, id)
	}
	return "wheel/↑↓/jk scroll  PgUp/PgDn fast  m mute  i idle  q quit |" + keys
}
