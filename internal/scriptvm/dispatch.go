package scriptvm

import "fmt"

func argStr(args []Value, i int) string {
	if i < len(args) {
		return args[i].String()
	}
	return ""
}

func argInt(args []Value, i int) int {
	if i < len(args) {
		return int(args[i].Num)
	}
	return 0
}

func argInt64(args []Value, i int) int64 {
	if i < len(args) {
		return int64(args[i].Num)
	}
	return 0
}

func argObject(args []Value, i int) map[string]Value {
	if i < len(args) && args[i].Kind == ValueObject {
		return args[i].Object
	}
	return nil
}

func stringSlice(args []Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out
}

// dispatch routes one parsed call expression to the matching Host
// operation, per the surface enumerated in spec.md §4.6.
func dispatch(name string, args []Value, host Host, reg *CallableRegistry, match []string) error {
	switch name {
	case "send", "session.send":
		host.SessionSend(argStr(args, 0))
	case "sendRaw", "session.sendRaw":
		host.SessionSendRaw(argStr(args, 0))
	case "echo", "session.echo":
		host.SessionEcho(argStr(args, 0))
	case "session.reload":
		host.SessionReload()

	case "alias.setEnabled":
		host.SetAliasEnabled(argStr(args, 0), args[1].Bool)
	case "trigger.setEnabled":
		host.SetTriggerEnabled(argStr(args, 0), args[1].Bool)

	case "line.gag":
		host.LineGag()
	case "line.insertAt":
		host.LineInsert(argInt(args, 0), argStr(args, 1), styleFromObject(argObject(args, 2)))
	case "line.replaceAt":
		host.LineReplace(argInt(args, 0), argInt(args, 1), argStr(args, 2))
	case "line.highlightAt":
		host.LineHighlight(argInt(args, 0), argInt(args, 1), styleFromObject(argObject(args, 2)))
	case "line.removeAt":
		host.LineRemove(argInt(args, 0), argInt(args, 1))

	case "buffer.insertAt":
		return host.BufferInsert(argInt64(args, 0), argInt(args, 1), argStr(args, 2), styleFromObject(argObject(args, 3)))
	case "buffer.replaceAt":
		return host.BufferReplace(argInt64(args, 0), argInt(args, 1), argInt(args, 2), argStr(args, 3))
	case "buffer.highlightAt":
		return host.BufferHighlight(argInt64(args, 0), argInt(args, 1), argInt(args, 2), styleFromObject(argObject(args, 3)))
	case "buffer.removeAt":
		return host.BufferRemove(argInt64(args, 0), argInt(args, 1), argInt(args, 2))

	case "mapper.renameArea":
		host.RenameArea(refArg(args, 0), argStr(args, 3))
	case "mapper.setRoomField":
		host.SetRoomField(refArg(args, 0), argStr(args, 3), argStr(args, 4))
	case "mapper.setRoomProperty":
		host.SetRoomProperty(refArg(args, 0), argStr(args, 3), argStr(args, 4))
	case "mapper.setAreaProperty":
		host.SetAreaProperty(refArg(args, 0), argStr(args, 3), argStr(args, 4))
	case "mapper.createRoom":
		host.CreateRoom(refArg(args, 0), argStr(args, 3))
	case "mapper.deleteRoom":
		host.DeleteRoom(refArg(args, 0))
	case "mapper.setCurrentLocation":
		host.SetCurrentLocation(refArg(args, 0))

	default:
		if reg != nil {
			if _, ok := reg.lookup(name); ok {
				return reg.Invoke(name, match, host)
			}
		}
		return fmt.Errorf("scriptvm: unknown host operation %q", name)
	}
	return nil
}

// refArg reconstructs a MapEntityRef from a three-number argument
// (areaHi, areaLo, room), the JSON-serialisable shape spec.md §6 mandates
// for opaque 128-bit ids.
func refArg(args []Value, i int) MapEntityRef {
	if i+2 >= len(args) {
		return MapEntityRef{}
	}
	return MapEntityRef{
		AreaHi: uint64(args[i].Num),
		AreaLo: uint64(args[i+1].Num),
		Room:   uint32(args[i+2].Num),
	}
}
