package locator

import (
	"context"

	"mesh-rpc/protocol"
	"mesh-rpc/server"

	"go.uber.org/zap"
)

// Error codes of the "locator" error category.
const (
	CodeServiceNotAvailable int64 = 1
	CodeInvalidArguments    int64 = 2
)

func errServiceNotAvailable() error {
	return &protocol.RemoteError{Category: ServiceName, Code: CodeServiceNotAvailable, Message: "service is not available"}
}

func errInvalidArguments() error {
	return &protocol.RemoteError{Category: ServiceName, Code: CodeInvalidArguments, Message: "expected a single string argument"}
}

// Register installs the resolve and routing handlers on srv, answering from
// catalog.
func Register(srv *server.Server, catalog *Catalog, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{catalog: catalog, logger: logger}
	srv.Handle(MethodResolve, h.resolve)
	srv.Handle(MethodRouting, h.routing)
}

type handlers struct {
	catalog *Catalog
	logger  *zap.Logger
}

func singleArg(req *server.Request) (string, bool) {
	var args []string
	if err := req.Args.Decode(&args); err != nil || len(args) != 1 {
		return "", false
	}
	return args[0], true
}

func (h *handlers) resolve(_ context.Context, req *server.Request, w server.ResponseWriter) {
	name, ok := singleArg(req)
	if !ok {
		w.Error(errInvalidArguments())
		return
	}

	info, ok := h.catalog.Lookup(name)
	if !ok {
		h.logger.Debug("resolve miss", zap.String("name", name), zap.Stringer("remote", req.Remote))
		w.Error(errServiceNotAvailable())
		return
	}
	w.Value(info.wire())
}

// routing streams the current table and every update until the subscriber
// goes away or the server shuts down.
func (h *handlers) routing(ctx context.Context, req *server.Request, w server.ResponseWriter) {
	uuid, ok := singleArg(req)
	if !ok {
		w.Error(errInvalidArguments())
		return
	}
	logger := h.logger.With(zap.String("uuid", uuid), zap.Stringer("remote", req.Remote))

	current, updates, cancel := h.catalog.Subscribe()
	defer cancel()

	logger.Debug("routing subscriber attached")
	if err := w.Chunk(current); err != nil {
		logger.Debug("routing subscriber lost", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case table := <-updates:
			if err := w.Chunk(table); err != nil {
				logger.Debug("routing subscriber lost", zap.Error(err))
				return
			}
		}
	}
}
