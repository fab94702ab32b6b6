package repl

import (
	"context"
	"fmt"

	"github.com/joeycumines/jdb/internal/debugger"
)

// Handler is the interactive debugger.Handler: it announces the run, prompts
// while stepping and gives one last prompt once the script has finished.
type Handler struct {
	interp *Interpreter
}

var _ debugger.Handler = (*Handler)(nil)

func NewHandler(interp *Interpreter) *Handler {
	return &Handler{interp: interp}
}

func (h *Handler) Start(ctx context.Context, program any) (bool, error) {
	h.interp.printf("Loaded and running %s\n", FormatValue(program))
	return h.interp.Run(ctx, nil)
}

func (h *Handler) Step(ctx context.Context, snapshot *debugger.Snapshot) (bool, error) {
	if !h.interp.session.Stepping() {
		return true, nil
	}
	if snapshot == nil {
		return true, fmt.Errorf("step without snapshot")
	}
	return h.interp.Run(ctx, snapshot)
}

// Break relies on the coordinator having switched to stepping mode.
func (h *Handler) Break(ctx context.Context, snapshot *debugger.Snapshot) (bool, error) {
	return h.Step(ctx, snapshot)
}

func (h *Handler) Stop(ctx context.Context, result any) error {
	h.interp.printf("Script finished. Result => %s\n", FormatValue(result))
	_, err := h.interp.Run(ctx, nil)
	return err
}
