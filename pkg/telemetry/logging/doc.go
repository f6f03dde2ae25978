// Package logging configures the process wide slog logger.
//
// # Usage
//
//	if err := logging.Setup(cfg.Logging, os.Stderr); err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRequestID(ctx, id)
//	slog.InfoContext(ctx, "Request completed", "status", 200)
//	// {"level":"INFO","msg":"Request completed","status":200,"request_id":"..."}
//
// Records logged with a context pick up request_id and trace_id
// automatically through ContextHandler.
package logging
