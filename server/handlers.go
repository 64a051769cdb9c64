package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"homegate/protocol"
)

// Dispatch routes one request to the Manager and renders the result. All
// errors, from unknown commands to device failures and timeouts, come back
// as {success:false, error}; nothing else crosses the wire.
func (s *Server) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	data, err := s.route(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return protocol.Fail(fmt.Sprintf("request timed out: %s", req.Command))
		}
		return protocol.Fail(err.Error())
	}
	return protocol.OK(data)
}

func (s *Server) route(ctx context.Context, req protocol.Request) (any, error) {
	switch req.Command {
	case protocol.CommandStatus:
		return s.mgr.Status(ctx)

	case protocol.CommandListHomes:
		return s.mgr.ListHomes(ctx)

	case protocol.CommandListRooms:
		var args protocol.HomeArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.ListRooms(ctx, args.HomeID)

	case protocol.CommandListAccessories:
		var args protocol.ListAccessoriesArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.ListAccessories(ctx, args)

	case protocol.CommandGetAccessory:
		var args protocol.GetAccessoryArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return nil, fmt.Errorf("get_accessory requires an id")
		}
		return s.mgr.GetAccessory(ctx, args.ID)

	case protocol.CommandControl:
		var args protocol.ControlArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		if args.ID == "" || args.Characteristic == "" {
			return nil, fmt.Errorf("control requires id and characteristic")
		}
		return s.mgr.Control(ctx, args)

	case protocol.CommandListScenes:
		var args protocol.HomeArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.ListScenes(ctx, args.HomeID)

	case protocol.CommandTriggerScene:
		var args protocol.TriggerSceneArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return nil, fmt.Errorf("trigger_scene requires an id")
		}
		return s.mgr.TriggerScene(ctx, args.ID)

	case protocol.CommandSearch:
		var args protocol.SearchArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.Search(ctx, args)

	case protocol.CommandDeviceMap:
		var args protocol.HomeArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.DeviceMap(ctx, args.HomeID)

	case protocol.CommandGetConfig:
		return s.mgr.GetConfig(ctx)

	case protocol.CommandSetConfig:
		var args protocol.SetConfigArgs
		if err := parseArgs(req, &args); err != nil {
			return nil, err
		}
		return s.mgr.SetConfig(ctx, args)

	case protocol.CommandRefreshCache:
		return s.mgr.RefreshCache(ctx)

	case protocol.CommandListAllAccessories:
		return s.mgr.ListAllAccessories(ctx)

	default:
		return nil, fmt.Errorf("Unknown command: %s", req.Command)
	}
}

func parseArgs(req protocol.Request, v any) error {
	if len(req.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Args, v); err != nil {
		return fmt.Errorf("invalid arguments for %s: %v", req.Command, err)
	}
	return nil
}
