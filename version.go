package chatrag

const Version = "0.1.0"
