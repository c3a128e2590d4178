// Package main 提供 iotgate 命令行入口
package main

func main() {
	Execute()
}
