// Package service provides the business logic layer for the EV taxi grid
// world.
//
// GameService is the single entry point used by every transport (HTTP,
// WebSocket and MCP). It resolves configurations through a ConfigManager,
// keeps episodes in a SessionManager and turns raw engine transitions into
// StepResult and BulkStepResult values that carry events, local views and
// battery risk summaries.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.Step(ctx, info.ID, "right", false)
//	bulk, err := svc.BulkStep(ctx, info.ID, []string{"down", "down", "left"}, false)
//
// Actions may be given by name (down, up, right, left) or index (0-3).
// Bulk steps stop at the first terminal transition and are capped at
// engine.MaxBulkSteps.
//
// Errors wrap ErrSessionNotFound, ErrConfigNotFound and the engine sentinels,
// so callers can map them with errors.Is.
package service
