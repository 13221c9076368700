package dispatch

import (
	"knox/log"
	"knox/persist"
	"knox/resp"
)

func cmdSave(d *Dispatcher, conn Conn, args [][]byte) bool {
	path := string(args[1])
	if err := persist.Save(d.Store, path); err != nil {
		log.Errorf("SAVE %s failed: %v", path, err)
		conn.Push(resp.EncodeError("ERR Failed to save database"))
		return false
	}
	conn.Push(resp.EncodeSimpleString("OK"))
	return false
}

func cmdLoad(d *Dispatcher, conn Conn, args [][]byte) bool {
	path := string(args[1])
	staging, err := persist.Load(path)
	if err != nil {
		log.Errorf("LOAD %s failed: %v", path, err)
		conn.Push(resp.EncodeError("ERR Failed to load database"))
		return false
	}
	d.Store.ReplaceFrom(staging)
	conn.Push(resp.EncodeSimpleString("OK"))
	return false
}
