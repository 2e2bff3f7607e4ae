package idgen

import (
	"log"
	"os"
	"strconv"
)

// InitFromEnv 读取 SNOWFLAKE_NODE_ID 初始化默认节点（多实例部署时每个实例不同）
func InitFromEnv() {
	nodeIDStr := os.Getenv("SNOWFLAKE_NODE_ID")
	if nodeIDStr == "" {
		nodeIDStr = "1"
	}
	nodeID, err := strconv.ParseInt(nodeIDStr, 10, 64)
	if err != nil {
		log.Fatalf("[IDGen] Invalid SNOWFLAKE_NODE_ID: %v", nodeIDStr)
	}
	if err := Init(nodeID); err != nil {
		log.Fatalf("[IDGen] Init failed: %v", err)
	}
	log.Printf("[IDGen] Snowflake node initialized: nodeID=%d", nodeID)
}
