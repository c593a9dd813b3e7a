package sim

// A Connection transfers messages between ports.
type Connection interface {
	Named
	Hookable

	// PlugIn connects a port to the connection.
	PlugIn(port Port)

	// Unplug removes the association between the port and the connection.
	Unplug(port Port)

	// NotifyAvailable is called by a port to notify that the port can
	// receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to notify that the port has something
	// to send.
	NotifySend()
}
