package rest

// A stateless REST server: every POST call carries its complete input
type StateLessServer struct {
	BaseServer
}

// create a stateless REST server
func NewStateLessServer() *StateLessServer {
	server := &StateLessServer{
		BaseServer: *NewBaseServer(),
	}

	server.router.POST("/"+EvaluateVerb, server.evaluate)
	server.router.POST("/"+SweepVerb, server.sweep)
	server.router.POST("/"+OptimizeVerb, server.optimize)
	server.router.POST("/"+NetworkVerb, server.network)

	server.router.GET("/"+HealthVerb, health)

	return server
}
