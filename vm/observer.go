package vm

import (
	"github.com/risor-io/clr/metadata"
	"github.com/risor-io/clr/op"
)

// TraceFilter selects the events an Observer receives. The zero value
// delivers nothing.
type TraceFilter struct {
	// Every delivers every Nth executed instruction to OnStep. Zero or a
	// negative value disables step events.
	Every int

	// Methods limits step events to the methods with these full names
	// (Namespace.Type.Method). Empty means every method. Instructions
	// skipped by this filter do not count towards Every.
	Methods []string

	// Calls delivers OnCall when a method body starts and OnReturn when it
	// completes. Internal calls have no body and are not reported.
	Calls bool
}

// TraceAll asks for every instruction and every call.
func TraceAll() TraceFilter {
	return TraceFilter{Every: 1, Calls: true}
}

// Observer receives execution events synchronously from the interpreter.
// Any callback returning false halts the machine with ErrHalted.
type Observer interface {
	// Filter is read once, when the observer is attached.
	Filter() TraceFilter
	OnStep(event StepEvent) bool
	OnCall(event CallEvent) bool
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes the instruction about to execute.
type StepEvent struct {
	// Method is the full name of the executing method.
	Method string

	// Position is the IL offset of the instruction.
	Position int

	Opcode     op.Code
	OpcodeName string

	// StackDepth is the depth of the evaluation stack before the
	// instruction runs.
	StackDepth int

	// FrameDepth is the number of active method frames.
	FrameDepth int
}

// CallEvent describes a method body being entered.
type CallEvent struct {
	Method     string
	ArgCount   int
	FrameDepth int // including the new frame
}

// ReturnEvent describes a method body that ran to its ret.
type ReturnEvent struct {
	Method     string
	FrameDepth int // after the frame is removed
}

// ObserverFuncs adapts plain functions to an Observer. Nil functions let
// execution continue.
type ObserverFuncs struct {
	TraceFilter
	Step   func(StepEvent) bool
	Call   func(CallEvent) bool
	Return func(ReturnEvent) bool
}

func (o ObserverFuncs) Filter() TraceFilter {
	return o.TraceFilter
}

func (o ObserverFuncs) OnStep(event StepEvent) bool {
	return o.Step == nil || o.Step(event)
}

func (o ObserverFuncs) OnCall(event CallEvent) bool {
	return o.Call == nil || o.Call(event)
}

func (o ObserverFuncs) OnReturn(event ReturnEvent) bool {
	return o.Return == nil || o.Return(event)
}

// tracer holds the attached observer and its filter state.
type tracer struct {
	observer Observer
	every    int
	methods  map[string]bool
	calls    bool
	count    int
}

func newTracer(observer Observer) *tracer {
	filter := observer.Filter()
	t := &tracer{observer: observer, every: filter.Every, calls: filter.Calls}
	if len(filter.Methods) > 0 {
		t.methods = make(map[string]bool, len(filter.Methods))
		for _, name := range filter.Methods {
			t.methods[name] = true
		}
	}
	return t
}

// wantStep reports whether the current instruction of m is delivered.
func (t *tracer) wantStep(m *metadata.Method) bool {
	if t.every <= 0 {
		return false
	}
	if t.methods != nil && !t.methods[m.FullName()] {
		return false
	}
	t.count++
	if t.count < t.every {
		return false
	}
	t.count = 0
	return true
}
